package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/get-eventually/logistics/aggregate"
	"github.com/get-eventually/logistics/internal/domain/order"
	"github.com/get-eventually/logistics/logger"
	"github.com/get-eventually/logistics/version"
)

// Connection retry policy applied on startup before failing fatally.
const (
	connectAttempts = 30
	connectInterval = 2 * time.Second
)

// Bounded retry policy applied to version conflicts during dispatch:
// reload-and-reapply may succeed once the racing writer has committed.
const (
	dispatchRetries     = 3
	dispatchBackoffBase = 100 * time.Millisecond
)

// Consumer consumes command Envelopes from a RabbitMQ queue and feeds
// them to a Dispatcher, acknowledging each delivery explicitly.
type Consumer struct {
	URL        string
	Queue      string
	Dispatcher Dispatcher
	Logger     logger.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect establishes the connection to the broker and declares the
// command queue, retrying with a fixed interval before giving up.
func (c *Consumer) Connect(ctx context.Context) error {
	connect := func() error {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			return fmt.Errorf("failed to dial broker, %w", err)
		}

		c.conn = conn

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(connectInterval), connectAttempts-1),
		ctx,
	)

	if err := backoff.Retry(connect, policy); err != nil {
		return fmt.Errorf("ingress.Consumer: failed to connect to broker, %w", err)
	}

	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("ingress.Consumer: failed to open channel, %w", err)
	}

	c.channel = channel

	if _, err := c.channel.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("ingress.Consumer: failed to declare queue, %w", err)
	}

	return nil
}

// Run consumes deliveries from the command queue until the context gets
// canceled or the delivery channel is closed by the broker.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("ingress.Consumer: failed to start consuming, %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}

				return errors.New("ingress.Consumer: delivery channel closed by broker")
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// Close shuts down the Consumer, closing the channel before the connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("ingress.Consumer: failed to close channel, %w", err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("ingress.Consumer: failed to close connection, %w", err)
		}
	}

	return nil
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var envelope Envelope

	if err := json.Unmarshal(delivery.Body, &envelope); err != nil || envelope.CommandType == "" {
		logger.Error(c.Logger, "rejecting malformed command envelope",
			logger.With("error", fmt.Sprintf("%v", err)),
		)

		c.reject(delivery, false)

		return
	}

	err := c.dispatchWithRetry(ctx, envelope)

	switch {
	case err == nil:
		if ackErr := delivery.Ack(false); ackErr != nil {
			logger.Error(c.Logger, "failed to acknowledge delivery",
				logger.With("error", ackErr.Error()),
			)
		}

	case isPermanentFailure(err):
		logger.Error(c.Logger, "rejecting command permanently",
			logger.With("commandType", envelope.CommandType),
			logger.With("error", err.Error()),
		)

		c.reject(delivery, false)

	default:
		logger.Error(c.Logger, "rejecting command for redelivery",
			logger.With("commandType", envelope.CommandType),
			logger.With("error", err.Error()),
		)

		c.reject(delivery, true)
	}
}

// dispatchWithRetry dispatches the Envelope, retrying version conflicts
// with exponential backoff and jitter. All other errors short-circuit
// the retry loop.
func (c *Consumer) dispatchWithRetry(ctx context.Context, envelope Envelope) error {
	dispatch := func() error {
		err := c.Dispatcher.Dispatch(ctx, envelope)

		var conflictErr version.ConflictError
		if err != nil && !errors.As(err, &conflictErr) {
			return backoff.Permanent(err)
		}

		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = dispatchBackoffBase

	return backoff.Retry(dispatch, backoff.WithContext(
		backoff.WithMaxRetries(policy, dispatchRetries),
		ctx,
	))
}

// isPermanentFailure classifies errors for which redelivery cannot change
// the outcome: malformed input, unknown command types, state-machine guard
// violations and commands targeting unknown Orders.
func isPermanentFailure(err error) bool {
	return errors.Is(err, ErrUnknownCommandType) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, order.ErrInvalidState) ||
		errors.Is(err, aggregate.ErrRootNotFound)
}

func (c *Consumer) reject(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		logger.Error(c.Logger, "failed to reject delivery",
			logger.With("error", err.Error()),
		)
	}
}
