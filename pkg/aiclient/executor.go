package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Josn-deng/lux-xiaokai/pkg/utils"
)

// Executor performs exactly one POST against a chat-completions endpoint and
// classifies the outcome. It never retries and holds no per-call state, so a
// single Executor is safe for concurrent use.
type Executor struct {
	serverURL  string
	token      string
	httpClient *http.Client
}

// NewExecutor validates serverURL and returns an Executor. A trailing slash is
// stripped from the URL and a literal "Bearer " prefix from the token.
// A nil httpClient selects a default client without a global timeout; each
// call carries its own.
func NewExecutor(serverURL, token string, httpClient *http.Client) (*Executor, error) {
	normalized, err := normalizeURL(serverURL)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Executor{
		serverURL:  normalized,
		token:      normalizeToken(token),
		httpClient: httpClient,
	}, nil
}

// ServerURL returns the normalized endpoint.
func (e *Executor) ServerURL() string {
	return e.serverURL
}

// Post sends payload and returns the raw JSON body of a successful response.
func (e *Executor) Post(ctx context.Context, payload any, timeout time.Duration) (json.RawMessage, error) {
	attemptCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	req, err := e.newRequest(attemptCtx, payload)
	if err != nil {
		return nil, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if cerr := Classify(resp.StatusCode, body); cerr != nil {
		return nil, cerr
	}

	if !json.Valid(body) {
		return nil, &Error{
			Kind:       KindInvalidResponse,
			Message:    "body is not valid JSON: " + utils.Truncate(string(body), 200),
			StatusCode: resp.StatusCode,
		}
	}

	return body, nil
}

// Open sends payload and returns the response body for incremental reading.
// The timeout covers the request until response headers arrive; once the
// status has been checked the body stays open until the caller closes it or
// ctx is cancelled.
func (e *Executor) Open(ctx context.Context, payload any, timeout time.Duration) (io.ReadCloser, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.AfterFunc(timeout, cancel)

	req, err := e.newRequest(streamCtx, payload)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := e.httpClient.Do(req)
	timedOut := !timer.Stop()
	if err == nil && timedOut {
		// The timer fired after Do returned; the body is already cancelled.
		resp.Body.Close()
		err = context.DeadlineExceeded
	}
	if err != nil {
		cancel()
		if timedOut && ctx.Err() == nil {
			return nil, &Error{
				Kind:    KindNetwork,
				Message: fmt.Sprintf("no response within %s", timeout),
				Err:     err,
			}
		}
		return nil, transportError(ctx, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, Classify(resp.StatusCode, body)
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (e *Executor) newRequest(ctx context.Context, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindClient, Message: "encoding payload: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindClient, Message: "building request: " + err.Error(), Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	return req, nil
}

// cancelOnClose releases the request context together with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnClose) Close() error {
	var err error
	c.once.Do(func() {
		err = c.ReadCloser.Close()
		c.cancel()
	})
	return err
}

// withTimeout bounds one attempt. A non-positive timeout means the default.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", errors.New("server URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}

	return raw, nil
}

func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}
