package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
)

// StreamDelta is the payload of each SSE data frame.
type StreamDelta struct {
	Text string `json:"text"`
}

// handleStream handles POST /v1/stream/:task. Deltas are written as
// "data: {...}" frames followed by "data: [DONE]". A failure after the
// stream opened is written as an "event: error" frame instead of [DONE].
func (s *Server) handleStream(c *fiber.Ctx) error {
	task, err := assistant.ParseTask(c.Params("task"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	// The fasthttp request context is recycled once the handler returns, so
	// the stream outlives it on its own context.
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := s.Service().Stream(ctx, task, req.Text)
	if err != nil {
		cancel()
		return s.writeTaskError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// io.Pipe gives per-frame flushing; pw.Write blocks until fasthttp has
	// written the previous chunk to the socket.
	pr, pw := io.Pipe()
	go s.pipeStream(cancel, stream, pw)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) pipeStream(cancel context.CancelFunc, stream *assistant.Stream, pw *io.PipeWriter) {
	defer cancel()
	defer pw.Close()

	for chunk, err := range stream.Chunks() {
		if err != nil {
			s.logger.Warn("stream ended with error", "kind", errorKind(err), "error", err)
			payload, _ := json.Marshal(llm.ErrorResponse{Error: err.Error(), Kind: string(errorKind(err))})
			_, _ = fmt.Fprintf(pw, "event: error\ndata: %s\n\n", payload)
			return
		}

		payload, _ := json.Marshal(StreamDelta{Text: chunk})
		if _, err := fmt.Fprintf(pw, "data: %s\n\n", payload); err != nil {
			// The client went away; breaking out closes the upstream stream.
			s.logger.Debug("stream client disconnected", "error", err)
			return
		}
	}

	_, _ = io.WriteString(pw, "data: [DONE]\n\n")
}
