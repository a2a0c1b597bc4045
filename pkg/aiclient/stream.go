package aiclient

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
	"github.com/Josn-deng/lux-xiaokai/pkg/sse"
)

// Stream is a lazy, forward-only sequence of text deltas. It is not safe for
// concurrent use by multiple goroutines, except that Close may be called
// from any goroutine to abandon the stream.
//
//	stream, err := client.ChatStream(ctx, req)
//	if err != nil { ... }
//	defer stream.Close()
//	for stream.Next() {
//		fmt.Print(stream.Text())
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *sse.Reader

	text   string
	err    error
	done   bool
	closed atomic.Bool
	once   sync.Once
}

func newStream(ctx context.Context, body io.ReadCloser) *Stream {
	return &Stream{
		ctx:    ctx,
		body:   body,
		reader: sse.NewReader(body),
	}
}

// Next advances to the next non-empty delta. It returns false when the
// stream ends, fails or is closed.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}

	for {
		frame, err := s.reader.Next()
		if err != nil {
			s.finish(s.readError(err))
			return false
		}
		if frame == nil || frame.IsDone() {
			s.finish(nil)
			return false
		}

		var chunk llm.StreamChunk
		if err := json.Unmarshal([]byte(frame.Data), &chunk); err != nil {
			continue
		}

		text := chunk.Text()
		if text == "" {
			continue
		}

		s.text = text
		return true
	}
}

// Text returns the delta produced by the last call to Next.
func (s *Stream) Text() string {
	return s.text
}

// Err returns the error that ended the stream, or nil when it ended with
// [DONE], end of body or Close.
func (s *Stream) Err() error {
	return s.err
}

// Close abandons the stream and releases the connection. It is idempotent
// and always returns nil.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		_ = s.body.Close()
	})
	return nil
}

// Chunks returns the remaining deltas as an iterator. The stream is closed
// when iteration ends, including when the caller breaks out early. A
// failure is yielded once as the final element.
func (s *Stream) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()

		for s.Next() {
			if !yield(s.Text(), nil) {
				return
			}
		}

		if err := s.Err(); err != nil {
			yield("", err)
		}
	}
}

// Collect drains the stream and returns the concatenated text.
func (s *Stream) Collect() (string, error) {
	var out []byte
	for chunk, err := range s.Chunks() {
		if err != nil {
			return string(out), err
		}
		out = append(out, chunk...)
	}
	return string(out), nil
}

func (s *Stream) finish(err error) {
	s.done = true
	s.text = ""
	s.err = err
	s.Close()
}

func (s *Stream) readError(err error) error {
	if s.closed.Load() {
		return nil
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return &Error{Kind: KindCancelled, Message: ctxErr.Error(), Err: err}
	}
	return &Error{Kind: KindNetwork, Message: "reading stream: " + err.Error(), Err: err}
}
