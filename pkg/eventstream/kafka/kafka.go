// Package kafka publishes outcome events to a Kafka topic with
// segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/eventstream"
)

// DefaultTopic receives outcome events when no topic is configured.
const DefaultTopic = "answerdesk.resolutions"

// messageWriter is the part of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long a message waits for a batch. Defaults to 10ms.
	BatchTimeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Publisher writes each event as one JSON message keyed by session id, so the
// events of a session land on one partition in order.
type Publisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first Publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	batchTimeout := c.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, c.Logger), nil
}

func newPublisher(w messageWriter, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes e synchronously.
func (p *Publisher) Publish(ctx context.Context, e eventstream.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(e.SessionID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(e.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", e.ID),
		zap.String("session_id", e.SessionID),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
