package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/internal/domain/order"
	"github.com/get-eventually/logistics/internal/messaging"
	"github.com/get-eventually/logistics/version"
)

type fakePublisher struct {
	published []messaging.IntegrationEvent
	failWith  error
}

func (p *fakePublisher) Publish(_ context.Context, events ...messaging.IntegrationEvent) error {
	if p.failWith != nil {
		return p.failWith
	}

	p.published = append(p.published, events...)

	return nil
}

type fakeCheckpointer struct {
	checkpoint version.SequenceNumber
}

func (c *fakeCheckpointer) Read(context.Context) (version.SequenceNumber, error) {
	return c.checkpoint, nil
}

func (c *fakeCheckpointer) Write(_ context.Context, checkpoint version.SequenceNumber) error {
	c.checkpoint = checkpoint

	return nil
}

func TestRelay(t *testing.T) {
	ctx := context.Background()
	id := order.ID(uuid.New())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []event.Persisted{
		{
			StreamID:       event.StreamID(id.String()),
			Version:        1,
			SequenceNumber: 7,
			RecordedAt:     now,
			Envelope: event.ToEnvelope(order.WasPlaced{
				OrderID:      id,
				CustomerName: "Alice",
				Address:      "1 Main St",
				Total:        10.00,
				PlacedAt:     now,
			}),
		},
		{
			StreamID:       event.StreamID(id.String()),
			Version:        2,
			SequenceNumber: 8,
			RecordedAt:     now,
			Envelope: event.ToEnvelope(order.WasPacked{
				OrderID:     id,
				WarehouseID: "WH1",
				Weight:      2.5,
				PackedAt:    now,
			}),
		},
	}

	t.Run("it publishes the batch and advances the checkpoint", func(t *testing.T) {
		publisher := &fakePublisher{}
		checkpointer := &fakeCheckpointer{}

		relay := messaging.Relay{
			Publisher:    publisher,
			Checkpointer: checkpointer,
			Serializer:   order.EventSerde,
		}

		require.NoError(t, relay.ApplyBatch(ctx, events))

		require.Len(t, publisher.published, 2)
		assert.Equal(t, "OrderPlaced", publisher.published[0].EventType)
		assert.Equal(t, id.String(), publisher.published[0].OrderID)
		assert.Equal(t, int64(7), publisher.published[0].Sequence)
		assert.Equal(t, "OrderPacked", publisher.published[1].EventType)

		checkpoint, err := relay.Checkpoint(ctx)
		require.NoError(t, err)
		assert.Equal(t, version.SequenceNumber(8), checkpoint)
	})

	t.Run("a publish failure leaves the checkpoint untouched", func(t *testing.T) {
		publisher := &fakePublisher{failWith: errors.New("broker unavailable")}
		checkpointer := &fakeCheckpointer{checkpoint: 6}

		relay := messaging.Relay{
			Publisher:    publisher,
			Checkpointer: checkpointer,
			Serializer:   order.EventSerde,
		}

		require.Error(t, relay.ApplyBatch(ctx, events))

		checkpoint, err := relay.Checkpoint(ctx)
		require.NoError(t, err)
		assert.Equal(t, version.SequenceNumber(6), checkpoint)
	})

	t.Run("an empty batch is a no-op", func(t *testing.T) {
		publisher := &fakePublisher{}
		checkpointer := &fakeCheckpointer{checkpoint: 6}

		relay := messaging.Relay{
			Publisher:    publisher,
			Checkpointer: checkpointer,
			Serializer:   order.EventSerde,
		}

		require.NoError(t, relay.ApplyBatch(ctx, nil))
		assert.Empty(t, publisher.published)
		assert.Equal(t, version.SequenceNumber(6), checkpointer.checkpoint)
	})
}
