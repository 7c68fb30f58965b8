// Package messaging relays committed Domain Events to external consumers
// as integration events.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// IntegrationEvent is the envelope published to external consumers
// for every committed Domain Event.
type IntegrationEvent struct {
	EventType  string          `json:"event_type"`
	OrderID    string          `json:"order_id"`
	Sequence   int64           `json:"sequence"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Publisher publishes integration events to an external transport.
type Publisher interface {
	Publish(ctx context.Context, events ...IntegrationEvent) error
}

var _ Publisher = KafkaPublisher{}

// KafkaPublisher is a Publisher implementation backed by a Kafka topic.
//
// Events are keyed by order id, so that all the integration events of a
// single Order land on the same partition, preserving their relative order.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

// NewKafkaPublisher returns a KafkaPublisher targeting the provided
// brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) KafkaPublisher {
	return KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish implements the Publisher interface.
func (p KafkaPublisher) Publish(ctx context.Context, events ...IntegrationEvent) error {
	messages := make([]kafka.Message, 0, len(events))

	for _, evt := range events {
		value, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("messaging.KafkaPublisher: failed to marshal integration event, %w", err)
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(evt.OrderID),
			Value: value,
		})
	}

	if err := p.Writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("messaging.KafkaPublisher: failed to write messages, %w", err)
	}

	return nil
}

// Close releases the underlying Kafka writer resources.
func (p KafkaPublisher) Close() error {
	if err := p.Writer.Close(); err != nil {
		return fmt.Errorf("messaging.KafkaPublisher: failed to close writer, %w", err)
	}

	return nil
}

// NopPublisher is a Publisher implementation that discards all events.
// Useful when no external transport is configured.
type NopPublisher struct{}

// Publish implements the Publisher interface.
func (NopPublisher) Publish(context.Context, ...IntegrationEvent) error { return nil }
