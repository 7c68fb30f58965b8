package aggregate_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/logistics/aggregate"
	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/internal/domain/order"
)

func TestEventSourcedRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("getting a missing aggregate root fails with ErrRootNotFound", func(t *testing.T) {
		repository := aggregate.NewEventSourcedRepository(event.NewInMemoryStore(), order.Type)

		_, err := repository.Get(ctx, order.ID(uuid.New()))
		assert.ErrorIs(t, err, aggregate.ErrRootNotFound)
	})

	t.Run("saving and getting an aggregate root round-trips its state", func(t *testing.T) {
		repository := aggregate.NewEventSourcedRepository(event.NewInMemoryStore(), order.Type)
		id := order.ID(uuid.New())

		placed, err := order.Place(id, "Alice", "1 Main St", 10.00, now)
		require.NoError(t, err)
		require.NoError(t, placed.Pack("WH1", 2.5, now))

		require.NoError(t, repository.Save(ctx, placed))

		loaded, err := repository.Get(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, placed, loaded)
		assert.Equal(t, order.StatusPacked, loaded.Status)
	})

	t.Run("saving an aggregate root with no recorded events is a no-op", func(t *testing.T) {
		store := event.NewInMemoryStore()
		repository := aggregate.NewEventSourcedRepository(store, order.Type)
		id := order.ID(uuid.New())

		placed, err := order.Place(id, "Alice", "1 Main St", 10.00, now)
		require.NoError(t, err)
		require.NoError(t, repository.Save(ctx, placed))
		require.NoError(t, repository.Save(ctx, placed))

		events, err := event.StreamToSlice(ctx, func(ctx context.Context, stream event.StreamWrite) error {
			return store.Stream(ctx, stream, event.StreamID(id.String()))
		})
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})
}
