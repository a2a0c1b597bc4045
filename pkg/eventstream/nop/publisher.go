// Package nop provides the publisher used when events are disabled.
package nop

import (
	"context"

	"github.com/Josn-deng/lux-xiaokai/pkg/eventstream"
)

// Publisher drops every event after validating it.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishInteraction validates input and otherwise does nothing.
func (p *Publisher) PublishInteraction(_ context.Context, event *eventstream.InteractionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
