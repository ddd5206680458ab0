// Package kafka publishes conversation events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/inklingco/inkling/pkg/eventstream"
)

// batchTimeout keeps single-event publishes snappy; the library default
// of one second would stall every save.
const batchTimeout = 10 * time.Millisecond

// Publisher writes events to a Kafka topic, keyed by conversation id so
// every event for one conversation lands on the same partition.
type Publisher struct {
	writer *kafkago.Writer
	log    *slog.Logger
}

// Config carries the connection settings for a Kafka publisher.
type Config struct {
	// Brokers lists the bootstrap broker addresses.
	Brokers []string
	// Topic is the topic events are written to.
	Topic string
}

// NewPublisher builds a publisher for the configured topic. No
// connection is made until the first publish.
func NewPublisher(c Config, log *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{writer: writer, log: log}, nil
}

// PublishConversation writes the event, blocking until the brokers
// acknowledge it.
func (p *Publisher) PublishConversation(ctx context.Context, event *eventstream.ConversationSavedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.EventID, err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.Conversation.ID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventID, err)
	}

	p.log.Debug("published conversation event",
		slog.String("event_id", event.EventID),
		slog.String("conversation_id", event.Conversation.ID),
		slog.String("topic", p.writer.Topic),
	)

	return nil
}

// Close flushes and tears down the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
