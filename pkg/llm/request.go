package llm

// ChatRequest is the request body sent to the chat-completions endpoint.
//
// It is treated as an immutable value once built: the client only ever sets
// Stream on its own copy (see WithStream).
type ChatRequest struct {
	// Model name (e.g., "qwen3-coder", "gpt-4o-mini")
	Model string `json:"model"`

	// Conversation messages, in order
	Messages []Message `json:"messages"`

	// Whether the upstream should stream the response as SSE frames
	Stream bool `json:"stream,omitempty"`
}

// WithStream returns a copy of r with the stream flag set. The receiver is
// a value, so the caller's request is left untouched.
func (r ChatRequest) WithStream() ChatRequest {
	r.Stream = true
	return r
}

// LastUserContent returns the content of the last user message, or "" if
// the request carries none.
func (r ChatRequest) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
