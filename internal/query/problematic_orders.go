package query

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/get-eventually/logistics/query"
)

// ProblematicOrder is the read model for an Order whose last delivery
// attempt has failed and has not been delivered since.
type ProblematicOrder struct {
	OrderID         string    `json:"orderId"`
	CustomerName    string    `json:"customerName"`
	DeliveryAddress string    `json:"deliveryAddress"`
	FailureReason   string    `json:"failureReason"`
	FailedAttempts  int       `json:"failedAttempts"`
	LastFailedAt    time.Time `json:"lastFailedAt"`
}

// ListProblematicOrders is the Query to list Orders with failed deliveries.
//
// By default, only Orders whose last failed attempt happened during the
// current UTC calendar day are returned. When WithinDays is positive,
// the window is extended to that many days back instead.
type ListProblematicOrders struct {
	WithinDays int
}

// Name implements message.Message.
func (ListProblematicOrders) Name() string { return "ListProblematicOrders" }

var _ query.Handler[ListProblematicOrders, []ProblematicOrder] = ListProblematicOrdersHandler{}

// ListProblematicOrdersHandler is the Query Handler for ListProblematicOrders queries.
type ListProblematicOrdersHandler struct {
	Conn  *pgxpool.Pool
	Clock func() time.Time
}

// Handle implements query.Handler.
func (h ListProblematicOrdersHandler) Handle(
	ctx context.Context,
	q query.Envelope[ListProblematicOrders],
) ([]ProblematicOrder, error) {
	clock := time.Now
	if h.Clock != nil {
		clock = h.Clock
	}

	now := clock().UTC()

	var since time.Time
	if days := q.Message.WithinDays; days > 0 {
		since = now.AddDate(0, 0, -days)
	} else {
		// Start of the current UTC calendar day.
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	rows, err := h.Conn.Query(
		ctx,
		`SELECT order_id, customer_name, delivery_address, failure_reason, failed_attempts, last_failed_at
		FROM problematic_orders
		WHERE last_failed_at >= $1
		ORDER BY last_failed_at DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query.ListProblematicOrdersHandler: failed to query problematic orders, %w", err)
	}

	defer rows.Close()

	var orders []ProblematicOrder

	for rows.Next() {
		var o ProblematicOrder

		if err := rows.Scan(
			&o.OrderID, &o.CustomerName, &o.DeliveryAddress,
			&o.FailureReason, &o.FailedAttempts, &o.LastFailedAt,
		); err != nil {
			return nil, fmt.Errorf("query.ListProblematicOrdersHandler: failed to scan next row, %w", err)
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query.ListProblematicOrdersHandler: failed while reading rows, %w", err)
	}

	return orders, nil
}
