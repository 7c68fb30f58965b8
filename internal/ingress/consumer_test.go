package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/logistics/aggregate"
	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/event"
	appcommand "github.com/get-eventually/logistics/internal/command"
	"github.com/get-eventually/logistics/internal/domain/order"
	"github.com/get-eventually/logistics/version"
)

// fakeAcknowledger records the acknowledgment outcome of a single delivery.
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acked = true

	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue

	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeued = requeue

	return nil
}

func newDelivery(body []byte) (amqp.Delivery, *fakeAcknowledger) {
	ack := &fakeAcknowledger{}

	return amqp.Delivery{
		Acknowledger: ack,
		Body:         body,
	}, ack
}

func envelopeBody(t *testing.T, commandType string, payload any) []byte {
	t.Helper()

	rawPayload, err := json.Marshal(payload)
	require.NoError(t, err)

	body, err := json.Marshal(Envelope{
		CommandType: commandType,
		Payload:     rawPayload,
	})
	require.NoError(t, err)

	return body
}

func newTestConsumer(store event.Store) *Consumer {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	repository := aggregate.NewEventSourcedRepository(store, order.Type)

	return &Consumer{
		Dispatcher: Dispatcher{
			PlaceOrderHandler:    appcommand.PlaceOrderHandler{Clock: clock, Repository: repository},
			PackOrderHandler:     appcommand.PackOrderHandler{Clock: clock, Repository: repository},
			ChangeAddressHandler: appcommand.ChangeAddressHandler{Clock: clock, Repository: repository},
			FailDeliveryHandler:  appcommand.FailDeliveryHandler{Clock: clock, Repository: repository},
		},
	}
}

func TestConsumerHandleDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("a malformed envelope is rejected permanently", func(t *testing.T) {
		consumer := newTestConsumer(event.NewInMemoryStore())
		delivery, ack := newDelivery([]byte("{not-json"))

		consumer.handleDelivery(ctx, delivery)

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
	})

	t.Run("an unknown command type is rejected permanently", func(t *testing.T) {
		consumer := newTestConsumer(event.NewInMemoryStore())
		delivery, ack := newDelivery(envelopeBody(t, "ExplodeOrder", map[string]any{}))

		consumer.handleDelivery(ctx, delivery)

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
	})

	t.Run("a command for an unknown order is rejected permanently with no event appended", func(t *testing.T) {
		store := event.NewInMemoryStore()
		trackingStore := event.NewTrackingEventStore(store)
		consumer := newTestConsumer(event.FusedStore{
			Appender:      trackingStore,
			Streamer:      store,
			SinceStreamer: store,
		})

		delivery, ack := newDelivery(envelopeBody(t, CommandTypePackOrder, map[string]any{
			"orderId":     uuid.New().String(),
			"warehouseId": "WH1",
			"weight":      2.5,
		}))

		consumer.handleDelivery(ctx, delivery)

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
		assert.Empty(t, trackingStore.Recorded())
	})

	t.Run("a state machine violation is rejected permanently", func(t *testing.T) {
		store := event.NewInMemoryStore()
		consumer := newTestConsumer(store)

		id := uuid.New()

		placeDelivery, placeAck := newDelivery(envelopeBody(t, CommandTypePlaceOrder, map[string]any{
			"orderId":      id.String(),
			"customerName": "Alice",
			"address":      "1 Main St",
			"total":        10.00,
		}))
		consumer.handleDelivery(ctx, placeDelivery)
		require.True(t, placeAck.acked)

		failDelivery, failAck := newDelivery(envelopeBody(t, CommandTypeFailDelivery, map[string]any{
			"orderId": id.String(),
			"reason":  "no answer",
		}))
		consumer.handleDelivery(ctx, failDelivery)

		assert.True(t, failAck.nacked)
		assert.False(t, failAck.requeued)
	})

	t.Run("a successful command is acknowledged", func(t *testing.T) {
		store := event.NewInMemoryStore()
		consumer := newTestConsumer(store)

		delivery, ack := newDelivery(envelopeBody(t, CommandTypePlaceOrder, map[string]any{
			"customerName": "Alice",
			"address":      "1 Main St",
			"total":        10.00,
		}))

		consumer.handleDelivery(ctx, delivery)

		assert.True(t, ack.acked)
		assert.False(t, ack.nacked)
	})
}

func TestConsumerDispatchRetries(t *testing.T) {
	ctx := context.Background()

	conflictingHandler := func(failures int) (command.HandlerFunc[appcommand.PlaceOrder], *int) {
		attempts := 0

		return func(context.Context, command.Envelope[appcommand.PlaceOrder]) error {
			attempts++

			if attempts <= failures {
				return fmt.Errorf("append failed, %w", version.ConflictError{
					StreamID: "order-1",
					Version:  2,
				})
			}

			return nil
		}, &attempts
	}

	body := envelopeBody(t, CommandTypePlaceOrder, map[string]any{
		"customerName": "Alice",
		"address":      "1 Main St",
		"total":        10.00,
	})

	t.Run("a version conflict is retried until it succeeds", func(t *testing.T) {
		handler, attempts := conflictingHandler(2)
		consumer := &Consumer{Dispatcher: Dispatcher{PlaceOrderHandler: handler}}

		delivery, ack := newDelivery(body)
		consumer.handleDelivery(ctx, delivery)

		assert.True(t, ack.acked)
		assert.Equal(t, 3, *attempts)
	})

	t.Run("conflict exhaustion is rejected with redelivery", func(t *testing.T) {
		handler, attempts := conflictingHandler(10)
		consumer := &Consumer{Dispatcher: Dispatcher{PlaceOrderHandler: handler}}

		delivery, ack := newDelivery(body)
		consumer.handleDelivery(ctx, delivery)

		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)
		assert.Equal(t, 1+dispatchRetries, *attempts)
	})

	t.Run("a transient error is rejected with redelivery without retrying", func(t *testing.T) {
		attempts := 0
		handler := command.HandlerFunc[appcommand.PlaceOrder](
			func(context.Context, command.Envelope[appcommand.PlaceOrder]) error {
				attempts++

				return errors.New("database connection lost")
			},
		)

		consumer := &Consumer{Dispatcher: Dispatcher{PlaceOrderHandler: handler}}

		delivery, ack := newDelivery(body)
		consumer.handleDelivery(ctx, delivery)

		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)
		assert.Equal(t, 1, attempts)
	})
}
