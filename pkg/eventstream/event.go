package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/Josn-deng/lux-xiaokai/pkg/history"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeInteractionRecorded is emitted after an interaction is stored.
	EventTypeInteractionRecorded = "xiaokai.interaction.recorded"
)

// InteractionEvent is a transport-neutral event payload for a recorded
// interaction.
type InteractionEvent struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	EventID       string              `json:"event_id"`
	EmittedAt     time.Time           `json:"emitted_at"`
	Source        EventSource         `json:"source"`
	Interaction   history.Interaction `json:"interaction"`
}

// EventSource identifies where the interaction originated.
type EventSource struct {
	// Frontend is the surface that served the request, e.g. "cli" or "api".
	Frontend string `json:"frontend,omitempty"`
	Server   string `json:"server,omitempty"`
}

// NewInteractionEvent wraps a copy of interaction in a v1 event.
func NewInteractionEvent(interaction *history.Interaction, source EventSource) *InteractionEvent {
	event := &InteractionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeInteractionRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
	}
	if interaction != nil {
		event.Interaction = *interaction
	}

	return event
}

// Key is the partitioning key for the event: the interaction ID.
func (e *InteractionEvent) Key() string {
	return e.Interaction.ID
}
