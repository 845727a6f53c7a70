// Package kafka publishes generation events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/watsonx/pkg/eventstream"
	"github.com/papercomputeco/watsonx/pkg/logger"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "watsonx.generations"

// Config selects the cluster and topic.
type Config struct {
	Brokers []string
	Topic   string
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each event as one JSON message keyed by its partition key.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

// NewPublisher creates a publisher for cfg. Connections are made lazily on
// the first write.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, topic, opts...), nil
}

func newPublisher(w messageWriter, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		writer: w,
		topic:  topic,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.OrNop(p.logger).With("component", "kafka_publisher", "topic", topic)
	return p
}

// PublishGeneration marshals event and writes it synchronously.
func (p *Publisher) PublishGeneration(ctx context.Context, event *eventstream.GenerationEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling generation event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.PartitionKey()),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event %s to %s: %w", event.EventID, p.topic, err)
	}

	p.logger.Debug("published generation event", "event_id", event.EventID, "kind", event.Kind)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
