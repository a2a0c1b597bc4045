// Package sse provides a minimal, purpose-built reader for the line-oriented
// "data: <payload>" frames emitted by OpenAI-compatible chat-completions
// endpoints when stream=true.
//
// Every line is treated on its own: frames are not required to be separated
// by blank lines, and "event:", "id:" and comment lines are skipped.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
package sse

// DoneSentinel is the payload that terminates an OpenAI-style stream.
const DoneSentinel = "[DONE]"

// DataPrefix marks a line that carries a frame payload.
const DataPrefix = "data: "

// Frame is a single "data: " line with the prefix removed.
type Frame struct {
	// Data is the raw payload following the "data: " prefix.
	Data string
}

// IsDone reports whether the frame is the [DONE] sentinel.
func (f *Frame) IsDone() bool {
	return f.Data == DoneSentinel
}
