package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/get-eventually/logistics/internal/postgrestest"
	appquery "github.com/get-eventually/logistics/internal/query"
	"github.com/get-eventually/logistics/query"
)

func insertProblematicOrder(t *testing.T, handler appquery.ListProblematicOrdersHandler, customer string, failedAt time.Time) {
	t.Helper()

	_, err := handler.Conn.Exec(context.Background(),
		`INSERT INTO problematic_orders
			(order_id, customer_name, delivery_address, failure_reason, failed_attempts, last_failed_at)
		VALUES ($1, $2, '1 Main St', 'no answer', 1, $3)`,
		uuid.NewString(), customer, failedAt,
	)
	require.NoError(t, err)
}

func TestListProblematicOrdersHandler(t *testing.T) {
	pool := postgrestest.Start(t)

	ctx := context.Background()
	now := time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC)

	handler := appquery.ListProblematicOrdersHandler{
		Conn:  pool,
		Clock: func() time.Time { return now },
	}

	insertProblematicOrder(t, handler, "Alice", now.Add(-time.Hour))
	insertProblematicOrder(t, handler, "Bob", now.AddDate(0, 0, -1))

	t.Run("defaults to failures from the current UTC calendar day", func(t *testing.T) {
		orders, err := handler.Handle(ctx, query.ToEnvelope(appquery.ListProblematicOrders{}))
		require.NoError(t, err)

		require.Len(t, orders, 1)
		assert.Equal(t, "Alice", orders[0].CustomerName)
	})

	t.Run("a positive withinDays widens the window", func(t *testing.T) {
		orders, err := handler.Handle(ctx, query.ToEnvelope(appquery.ListProblematicOrders{
			WithinDays: 2,
		}))
		require.NoError(t, err)

		require.Len(t, orders, 2)
		assert.Equal(t, "Alice", orders[0].CustomerName)
		assert.Equal(t, "Bob", orders[1].CustomerName)
	})
}
