// Package assistant provides the task shortcuts the front ends call:
// translation, polishing, question answering and speech translation, each
// in a blocking and a streaming form. Every finished call is handed to a
// Recorder.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
	"github.com/Josn-deng/lux-xiaokai/pkg/history"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
	"github.com/Josn-deng/lux-xiaokai/pkg/prompt"
)

// NoAnswer replaces an empty answer in RefineAnswer.
const NoAnswer = "No answer provided."

// ErrUnsupported is returned by operations the chat backend cannot serve.
var ErrUnsupported = errors.New("not supported by the chat backend")

// Client is the chat client the service drives. *aiclient.Client
// satisfies it.
type Client interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
	ChatStream(ctx context.Context, req llm.ChatRequest) (*aiclient.Stream, error)
}

// Recorder receives every finished interaction. Record must not block.
type Recorder interface {
	Record(interaction *history.Interaction)
}

type nopRecorder struct{}

func (nopRecorder) Record(*history.Interaction) {}

// Service runs assistant tasks against a chat client.
type Service struct {
	client   Client
	builder  prompt.Builder
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets where finished interactions go.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service that sends requests for model and translates into
// targetLanguage.
func New(client Client, model, targetLanguage string, opts ...Option) *Service {
	s := &Service{
		client:   client,
		builder:  prompt.Builder{Model: model, TargetLanguage: targetLanguage},
		recorder: nopRecorder{},
		logger:   logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Model returns the model requests are sent for.
func (s *Service) Model() string {
	return s.builder.Model
}

// TargetLanguage returns the translation target language code.
func (s *Service) TargetLanguage() string {
	return s.builder.TargetLanguage
}

// Translate translates text into the target language. Blank input returns
// "" without contacting the backend.
func (s *Service) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	return s.run(ctx, TaskTranslate, text)
}

// BatchTranslate translates each text in order. It stops at the first
// failure.
func (s *Service) BatchTranslate(ctx context.Context, texts []string) ([]string, error) {
	return s.batch(ctx, texts, s.Translate)
}

// Polish improves the grammar and clarity of text.
func (s *Service) Polish(ctx context.Context, text string) (string, error) {
	return s.run(ctx, TaskPolish, text)
}

// BatchPolish polishes each text in order. It stops at the first failure.
func (s *Service) BatchPolish(ctx context.Context, texts []string) ([]string, error) {
	return s.batch(ctx, texts, s.Polish)
}

// Ask answers a general question.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	return s.run(ctx, TaskAsk, question)
}

// SpeechTranslate translates text recognized from audio. Blank input returns
// "" without contacting the backend.
func (s *Service) SpeechTranslate(ctx context.Context, recognized string) (string, error) {
	if strings.TrimSpace(recognized) == "" {
		return "", nil
	}

	return s.run(ctx, TaskSpeechTranslate, recognized)
}

// DetectLanguage always fails: the chat backend has no detection endpoint.
func (s *Service) DetectLanguage(context.Context, string) (string, error) {
	return "", fmt.Errorf("detecting language: %w", ErrUnsupported)
}

// SupportedLanguages returns the target languages translation accepts.
func (s *Service) SupportedLanguages() []string {
	return prompt.SupportedLanguages()
}

// RefineAnswer trims answer, substituting NoAnswer when nothing is left.
func RefineAnswer(answer string) string {
	if trimmed := strings.TrimSpace(answer); trimmed != "" {
		return trimmed
	}
	return NoAnswer
}

func (s *Service) run(ctx context.Context, task Task, text string) (string, error) {
	req, err := s.request(task, text)
	if err != nil {
		return "", err
	}

	interaction := s.begin(task, text, false)
	out, err := s.client.Chat(ctx, req)
	s.finish(interaction, out, err)

	return out, err
}

func (s *Service) batch(ctx context.Context, texts []string, fn func(context.Context, string) (string, error)) ([]string, error) {
	results := make([]string, 0, len(texts))
	for i, text := range texts {
		out, err := fn(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results = append(results, out)
	}

	return results, nil
}

func (s *Service) request(task Task, text string) (llm.ChatRequest, error) {
	switch task {
	case TaskTranslate:
		return s.builder.Translation(text), nil
	case TaskPolish:
		return s.builder.Polish(text), nil
	case TaskAsk:
		return s.builder.QA(text), nil
	case TaskSpeechTranslate:
		return s.builder.SpeechTranslation(text), nil
	default:
		return llm.ChatRequest{}, fmt.Errorf("unknown task %q", task)
	}
}

func (s *Service) begin(task Task, input string, streaming bool) *history.Interaction {
	interaction := history.NewInteraction(string(task), s.builder.Model, input)
	interaction.StartedAt = s.now().UTC()
	interaction.Streaming = streaming
	return interaction
}

func (s *Service) finish(interaction *history.Interaction, output string, err error) {
	interaction.Output = output
	interaction.Duration = s.now().Sub(interaction.StartedAt)
	if err != nil {
		interaction.Error = err.Error()
		interaction.ErrorKind = string(aiclient.KindOf(err))
		s.logger.Debug("assistant task failed",
			"task", interaction.Task,
			"kind", interaction.ErrorKind,
			"error", err,
		)
	}

	s.recorder.Record(interaction)
}
