package kafka

import (
	"log/slog"
)

// NewPublisherWithWriter exposes the writer seam to the external test package.
func NewPublisherWithWriter(writer messageWriter, topic string, log *slog.Logger) *Publisher {
	return newPublisher(writer, topic, log)
}

type MessageWriter = messageWriter
