// Package kafka publishes interaction events to a Kafka topic. Each event is
// one JSON message keyed by the interaction ID, so every revision of an
// interaction lands on the same partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Josn-deng/lux-xiaokai/pkg/eventstream"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
)

const (
	defaultBatchTimeout = 10 * time.Millisecond
	defaultWriteTimeout = 10 * time.Second

	eventTypeHeader = "event_type"
)

// ErrNoBrokers is returned when the publisher is configured without brokers.
var ErrNoBrokers = errors.New("kafka publisher requires at least one broker")

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config is the configuration for the Kafka publisher.
type Config struct {
	// Brokers are host:port bootstrap addresses.
	Brokers []string

	// Topic receives every event.
	Topic string

	// WriteTimeout bounds a single write. Defaults to 10s.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Publisher is an eventstream.Publisher backed by a kafka-go Writer.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a publisher that writes to c.Topic. No connection is
// made until the first event is published.
func NewPublisher(c Config) (*Publisher, error) {
	brokers := make([]string, 0, len(c.Brokers))
	for _, b := range c.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if strings.TrimSpace(c.Topic) == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	writeTimeout := c.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           defaultBatchTimeout,
		WriteTimeout:           writeTimeout,
	}

	return newPublisher(writer, c.Topic, c.Logger), nil
}

func newPublisher(writer messageWriter, topic string, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}

	return &Publisher{
		writer: writer,
		topic:  topic,
		logger: log.With("component", "kafka-publisher", "topic", topic),
	}
}

// PublishInteraction writes the event as a single JSON message.
func (p *Publisher) PublishInteraction(ctx context.Context, event *eventstream.InteractionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", event.EventID, err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Headers: []kafkago.Header{
			{Key: eventTypeHeader, Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing event %s to %s: %w", event.EventID, p.topic, err)
	}

	p.logger.Debug("event published",
		"event_id", event.EventID,
		"interaction_id", event.Key(),
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
