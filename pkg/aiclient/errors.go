package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind discriminates the failure classes of a chat request.
type Kind string

const (
	KindAuthentication  Kind = "authentication"
	KindModelNotFound   Kind = "model_not_found"
	KindRateLimit       Kind = "rate_limit"
	KindServer          Kind = "server"
	KindNetwork         Kind = "network"
	KindInvalidResponse Kind = "invalid_response"
	KindClient          Kind = "client"
	KindCancelled       Kind = "cancelled"

	// KindStream wraps the failure to open a streaming response.
	KindStream Kind = "stream"
)

// Error is a classified chat request failure.
type Error struct {
	Kind Kind

	// Message is the upstream message, or the raw response text when the
	// body carries no error message.
	Message string

	// StatusCode is the upstream HTTP status, 0 for transport failures.
	StatusCode int

	// Code is the upstream error code string, if any.
	Code string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuthentication:
		return "authentication failed: " + e.Message
	case KindModelNotFound:
		return "model not found: " + e.Message
	case KindRateLimit:
		return "rate limited: " + e.Message
	case KindServer:
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	case KindClient:
		return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
	case KindInvalidResponse:
		return "invalid response: " + e.Message
	case KindNetwork:
		return "network error: " + e.Message
	case KindCancelled:
		return "request cancelled: " + e.Message
	case KindStream:
		return "stream request failed: " + e.Message
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindServer, KindNetwork:
		return true
	default:
		return false
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transient classified failure.
func IsRetryable(err error) bool {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Retryable()
	}
	return false
}

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorObject struct {
	Message any `json:"message"`
	Code    any `json:"code"`
}

// Classify maps an upstream status and body to a classified error. It returns
// nil for statuses below 400. Classify is pure: the same input always
// yields the same kind and message.
func Classify(status int, body []byte) *Error {
	if status < http.StatusBadRequest {
		return nil
	}

	message, code := parseErrorEnvelope(body)
	lowerMsg := strings.ToLower(message)
	lowerCode := strings.ToLower(code)

	kind := KindClient
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		strings.Contains(lowerMsg, "invalid api key") ||
		(strings.Contains(lowerMsg, "key") && strings.Contains(lowerMsg, "expired")):
		kind = KindAuthentication
	case status == http.StatusNotFound ||
		(strings.Contains(lowerMsg, "model") && strings.Contains(lowerMsg, "not") && strings.Contains(lowerMsg, "exist")) ||
		lowerCode == "model_not_found":
		kind = KindModelNotFound
	case status == http.StatusTooManyRequests ||
		lowerCode == "rate_limit_exceeded" ||
		strings.Contains(lowerMsg, "rate limit"):
		kind = KindRateLimit
	case status >= http.StatusInternalServerError:
		kind = KindServer
	}

	return &Error{
		Kind:       kind,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

// parseErrorEnvelope extracts message and code from {"error": {...}}. The raw
// body stands in for a missing or empty message.
func parseErrorEnvelope(body []byte) (message, code string) {
	raw := strings.TrimSpace(string(body))

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 && string(env.Error) != "null" {
		var obj errorObject
		if err := json.Unmarshal(env.Error, &obj); err == nil {
			message = stringify(obj.Message)
			if strings.TrimSpace(message) == "" {
				message = raw
			}
			return message, stringify(obj.Code)
		}

		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil && s != "" {
			return s, ""
		}
	}

	return raw, ""
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// transportError classifies a failed round trip. Failures caused by the
// caller's context are reported as cancellations, everything else
// (refused connections, per-attempt timeouts) as network errors.
func transportError(parent context.Context, err error) *Error {
	if parent.Err() != nil {
		return &Error{Kind: KindCancelled, Message: parent.Err().Error(), Err: err}
	}
	return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
}
