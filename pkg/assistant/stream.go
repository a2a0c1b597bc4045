package assistant

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
	"github.com/Josn-deng/lux-xiaokai/pkg/history"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
)

// Stream is a streaming task reply. It forwards the deltas of the
// underlying *aiclient.Stream and records the interaction once the stream
// ends or is closed.
type Stream struct {
	inner       *aiclient.Stream
	svc         *Service
	interaction *history.Interaction
	output      strings.Builder
	once        sync.Once
}

// Stream starts a streaming reply for a one-shot task. Blank input to the
// translation tasks yields an already finished, empty stream.
func (s *Service) Stream(ctx context.Context, task Task, text string) (*Stream, error) {
	if (task == TaskTranslate || task == TaskSpeechTranslate) && strings.TrimSpace(text) == "" {
		return &Stream{}, nil
	}

	req, err := s.request(task, text)
	if err != nil {
		return nil, err
	}

	return s.open(ctx, task, text, req)
}

// Converse streams the next assistant turn of a conversation. turns holds
// the prior user and assistant messages, ending with the new user message.
func (s *Service) Converse(ctx context.Context, turns []llm.Message) (*Stream, error) {
	req := s.builder.Conversation(s.builder.ChatSystem(), turns)
	return s.open(ctx, TaskChat, req.LastUserContent(), req)
}

func (s *Service) open(ctx context.Context, task Task, input string, req llm.ChatRequest) (*Stream, error) {
	interaction := s.begin(task, input, true)

	inner, err := s.client.ChatStream(ctx, req)
	if err != nil {
		s.finish(interaction, "", err)
		return nil, err
	}

	return &Stream{inner: inner, svc: s, interaction: interaction}, nil
}

// Next advances to the next delta.
func (st *Stream) Next() bool {
	if st.inner == nil {
		return false
	}

	if st.inner.Next() {
		st.output.WriteString(st.inner.Text())
		return true
	}

	st.record()
	return false
}

// Text returns the current delta.
func (st *Stream) Text() string {
	if st.inner == nil {
		return ""
	}
	return st.inner.Text()
}

// Err returns the error that ended the stream, if any.
func (st *Stream) Err() error {
	if st.inner == nil {
		return nil
	}
	return st.inner.Err()
}

// Close abandons the stream and records the partial output. Unlike
// aiclient.Stream.Close it must be called from the goroutine reading the
// stream; cancel the context to stop a reader from elsewhere.
func (st *Stream) Close() error {
	if st.inner == nil {
		return nil
	}

	err := st.inner.Close()
	st.record()
	return err
}

// Chunks returns the remaining deltas as an iterator, closing the stream
// when iteration ends. A failure is yielded once as the final element.
func (st *Stream) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer st.Close()

		for st.Next() {
			if !yield(st.Text(), nil) {
				return
			}
		}

		if err := st.Err(); err != nil {
			yield("", err)
		}
	}
}

// Collect drains the stream and returns the concatenated text.
func (st *Stream) Collect() (string, error) {
	for _, err := range st.Chunks() {
		if err != nil {
			return st.output.String(), err
		}
	}
	return st.output.String(), nil
}

func (st *Stream) record() {
	st.once.Do(func() {
		st.svc.finish(st.interaction, st.output.String(), st.inner.Err())
	})
}
