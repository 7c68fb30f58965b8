package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/internal/domain/order"
	"github.com/get-eventually/logistics/internal/postgrestest"
	"github.com/get-eventually/logistics/postgres"
	"github.com/get-eventually/logistics/version"
)

func placedEnvelope(id order.ID, now time.Time) event.Envelope {
	return event.ToEnvelope(order.WasPlaced{
		OrderID:      id,
		CustomerName: "Alice",
		Address:      "1 Main St",
		Total:        10.00,
		PlacedAt:     now,
	})
}

func TestEventStore(t *testing.T) {
	pool := postgrestest.Start(t)

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	eventStore := postgres.EventStore{
		Conn:  pool,
		Serde: order.EventSerde,
	}

	t.Run("append assigns versions and a shared global sequence", func(t *testing.T) {
		idA := order.ID(uuid.New())
		idB := order.ID(uuid.New())

		v, err := eventStore.Append(ctx, event.StreamID(idA.String()), placedEnvelope(idA, now))
		require.NoError(t, err)
		assert.Equal(t, version.Version(1), v)

		_, err = eventStore.Append(ctx, event.StreamID(idB.String()), placedEnvelope(idB, now))
		require.NoError(t, err)

		v, err = eventStore.Append(ctx, event.StreamID(idA.String()),
			event.ToEnvelope(order.WasPacked{
				OrderID:     idA,
				WarehouseID: "WH1",
				Weight:      2.5,
				PackedAt:    now,
			}),
			event.ToEnvelope(order.WasShipped{
				OrderID:   idA,
				Courier:   "DHL",
				ShippedAt: now,
			}),
		)
		require.NoError(t, err)
		assert.Equal(t, version.Version(3), v)

		events, err := event.StreamToSlice(ctx, func(ctx context.Context, stream event.StreamWrite) error {
			return eventStore.Stream(ctx, stream, event.StreamID(idA.String()))
		})
		require.NoError(t, err)
		require.Len(t, events, 3)

		for i, evt := range events {
			assert.Equal(t, version.Version(i+1), evt.Version) //nolint:gosec // Test indexes are small.
			assert.False(t, evt.RecordedAt.IsZero())
		}

		// Events interleaved with another stream still carry strictly
		// increasing sequence numbers.
		assert.Greater(t, events[1].SequenceNumber, events[0].SequenceNumber)
		assert.Greater(t, events[2].SequenceNumber, events[1].SequenceNumber)

		placed, ok := events[0].Message.(order.WasPlaced)
		require.True(t, ok)
		assert.Equal(t, "Alice", placed.CustomerName)
	})

	t.Run("stream since pages through the global log", func(t *testing.T) {
		all, err := event.StreamToSlice(ctx, func(ctx context.Context, stream event.StreamWrite) error {
			return eventStore.StreamSince(ctx, stream, 0, 100)
		})
		require.NoError(t, err)
		require.NotEmpty(t, all)

		half := all[len(all)/2].SequenceNumber

		page, err := event.StreamToSlice(ctx, func(ctx context.Context, stream event.StreamWrite) error {
			return eventStore.StreamSince(ctx, stream, half, 100)
		})
		require.NoError(t, err)

		for _, evt := range page {
			assert.Greater(t, evt.SequenceNumber, half)
		}
	})

	t.Run("concurrent appends on the same stream conflict deterministically", func(t *testing.T) {
		id := order.ID(uuid.New())
		streamID := event.StreamID(id.String())

		// Hold an uncommitted insert at version 1, so that the concurrent
		// Append derives the same version and blocks on the unique index.
		tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
		require.NoError(t, err)

		_, err = tx.Exec(
			ctx,
			`INSERT INTO events (event_stream_id, "version", "type", event, recorded_at)
			VALUES ($1, 1, 'OrderPlaced', '{}'::jsonb, now())`,
			streamID,
		)
		require.NoError(t, err)

		appendResult := make(chan error, 1)
		go func() {
			_, err := eventStore.Append(ctx, streamID, placedEnvelope(id, now))
			appendResult <- err
		}()

		// Give the concurrent Append time to block on the lock,
		// then commit the competing write.
		time.Sleep(500 * time.Millisecond)
		require.NoError(t, tx.Commit(ctx))

		err = <-appendResult
		require.Error(t, err)

		var conflictErr version.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, string(streamID), conflictErr.StreamID)
		assert.Equal(t, version.Version(1), conflictErr.Version)
	})

	t.Run("appending no events returns the current stream version", func(t *testing.T) {
		id := order.ID(uuid.New())
		streamID := event.StreamID(id.String())

		_, err := eventStore.Append(ctx, streamID, placedEnvelope(id, now))
		require.NoError(t, err)

		v, err := eventStore.Append(ctx, streamID)
		require.NoError(t, err)
		assert.Equal(t, version.Version(1), v)
	})
}
