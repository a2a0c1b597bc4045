// Package aiclient is a resilient client for OpenAI-compatible
// chat-completions endpoints.
//
// Failures are classified into a flat taxonomy (see Kind). Rate limits,
// server faults and network failures are retried with exponential backoff;
// every other failure is returned on first occurrence. Streaming requests are
// never retried: once deltas have reached the caller they cannot be replayed.
package aiclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
)

const (
	// DefaultMaxRetries allows up to four attempts per Chat call.
	DefaultMaxRetries = 3

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultBaseBackoff is the delay before the first retry. It doubles
	// before every following retry.
	DefaultBaseBackoff = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client sends chat requests through an Executor and owns the retry policy.
// Configuration is read-only after New; retry state lives in each call.
type Client struct {
	executor    *Executor
	maxRetries  int
	timeout     time.Duration
	baseBackoff time.Duration
	sleep       SleepFunc
	logger      *slog.Logger
}

type clientOptions struct {
	maxRetries  int
	timeout     time.Duration
	baseBackoff time.Duration
	sleep       SleepFunc
	logger      *slog.Logger
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

// WithMaxRetries sets how many times a transient failure is retried.
// Negative values are treated as 0.
func WithMaxRetries(n int) Option {
	return func(o *clientOptions) {
		o.maxRetries = max(n, 0)
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBaseBackoff sets the delay before the first retry.
func WithBaseBackoff(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.baseBackoff = d
		}
	}
}

// WithSleepFunc replaces the backoff sleep, mostly for tests.
func WithSleepFunc(fn SleepFunc) Option {
	return func(o *clientOptions) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithLogger sets the logger used for retry messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// New returns a Client for the endpoint at serverURL.
func New(serverURL, token string, opts ...Option) (*Client, error) {
	o := clientOptions{
		maxRetries:  DefaultMaxRetries,
		timeout:     DefaultTimeout,
		baseBackoff: DefaultBaseBackoff,
		sleep:       contextSleep,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	executor, err := NewExecutor(serverURL, token, o.httpClient)
	if err != nil {
		return nil, err
	}

	return &Client{
		executor:    executor,
		maxRetries:  o.maxRetries,
		timeout:     o.timeout,
		baseBackoff: o.baseBackoff,
		sleep:       o.sleep,
		logger:      o.logger,
	}, nil
}

// MaxRetries returns the configured retry count.
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// Timeout returns the per-attempt timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Chat sends req and returns the first choice's message content.
//
// Transient failures are retried up to MaxRetries times, sleeping 1s, 2s,
// 4s... between attempts. When every attempt fails the most recent
// transient error is returned as is.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	backoff := c.baseBackoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &Error{Kind: KindCancelled, Message: err.Error(), Err: err}
		}

		body, err := c.executor.Post(ctx, req, c.timeout)
		if err == nil {
			return extractContent(body)
		}

		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		c.logger.Warn("retrying chat request",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"delay", backoff,
			"kind", KindOf(err),
			"error", err,
		)

		if err := c.sleep(ctx, backoff); err != nil {
			return "", &Error{Kind: KindCancelled, Message: err.Error(), Err: err}
		}
		backoff *= 2
	}

	return "", lastErr
}

// ChatStream sends req with the stream flag set and returns the incremental
// response. It makes exactly one attempt; a failure to open the stream is
// returned as a KindStream error wrapping the classified cause.
func (c *Client) ChatStream(ctx context.Context, req llm.ChatRequest) (*Stream, error) {
	body, err := c.executor.Open(ctx, req.WithStream(), c.timeout)
	if err != nil {
		return nil, &Error{Kind: KindStream, Message: err.Error(), Err: err}
	}

	return newStream(ctx, body), nil
}

func extractContent(body json.RawMessage) (string, error) {
	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &Error{Kind: KindInvalidResponse, Message: "decoding response: " + err.Error(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindInvalidResponse, Message: "response has no choices"}
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", &Error{Kind: KindInvalidResponse, Message: "response has empty message content"}
	}

	return content, nil
}

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
