package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher enqueues command Envelopes on the command queue.
//
// It is the write entrypoint used by the public API: commands are accepted
// asynchronously and surface their outcome through the read model.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewPublisher connects to the broker and declares the command queue.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("ingress.NewPublisher: failed to dial broker, %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("ingress.NewPublisher: failed to open channel, %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()

		return nil, fmt.Errorf("ingress.NewPublisher: failed to declare queue, %w", err)
	}

	return &Publisher{
		conn:    conn,
		channel: channel,
		queue:   queue,
	}, nil
}

// Publish enqueues the provided command payload under the given command type.
func (p *Publisher) Publish(ctx context.Context, commandType string, payload any) error {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ingress.Publisher: failed to marshal command payload, %w", err)
	}

	body, err := json.Marshal(Envelope{
		CommandType: commandType,
		Payload:     rawPayload,
	})
	if err != nil {
		return fmt.Errorf("ingress.Publisher: failed to marshal command envelope, %w", err)
	}

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("ingress.Publisher: failed to publish command, %w", err)
	}

	return nil
}

// Close shuts down the Publisher, closing the channel before the connection.
func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("ingress.Publisher: failed to close channel, %w", err)
	}

	if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("ingress.Publisher: failed to close connection, %w", err)
	}

	return nil
}
