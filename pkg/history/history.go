// Package history records completed assistant interactions.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Interaction is one request/response exchange with the chat endpoint.
type Interaction struct {
	ID        string        `json:"id"`
	Task      string        `json:"task"`
	Model     string        `json:"model"`
	Input     string        `json:"input"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Streaming bool          `json:"streaming"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NewInteraction starts an interaction with a fresh ID.
func NewInteraction(task, model, input string) *Interaction {
	return &Interaction{
		ID:        uuid.NewString(),
		Task:      task,
		Model:     model,
		Input:     input,
		StartedAt: time.Now().UTC(),
	}
}

// Failed reports whether the interaction ended in an error.
func (i *Interaction) Failed() bool {
	return i.Error != ""
}

// Driver persists interactions.
type Driver interface {
	// Put stores an interaction, replacing any previous one with the same ID.
	Put(ctx context.Context, interaction *Interaction) error

	// Get retrieves an interaction by ID. Returns NotFoundError when missing.
	Get(ctx context.Context, id string) (*Interaction, error)

	// List returns up to limit interactions, newest first. limit <= 0
	// returns all of them.
	List(ctx context.Context, limit int) ([]*Interaction, error)

	// Close releases any resources.
	Close() error
}
