// Package query implements the read-side Query Handlers of the
// order-fulfillment service, backed by the projected read-model tables.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/get-eventually/logistics/internal/domain/order"
	"github.com/get-eventually/logistics/logger"
	"github.com/get-eventually/logistics/query"
)

// ErrOrderNotFound is returned when the requested Order does not appear
// in the read model.
var ErrOrderNotFound = errors.New("query: order not found")

// StatusHistoryEntry is a single status transition recorded on an Order.
type StatusHistoryEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderDetails is the read model for a single Order.
type OrderDetails struct {
	OrderID         string               `json:"orderId"`
	CustomerName    string               `json:"customerName"`
	DeliveryAddress string               `json:"deliveryAddress"`
	Total           float64              `json:"total"`
	Status          string               `json:"status"`
	WarehouseID     *string              `json:"warehouseId,omitempty"`
	Weight          *float64             `json:"weight,omitempty"`
	CourierName     *string              `json:"courierName,omitempty"`
	StatusHistory   []StatusHistoryEntry `json:"statusHistory"`
	PlacedAt        time.Time            `json:"placedAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
	ShippedAt       *time.Time           `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time           `json:"deliveredAt,omitempty"`
}

// GetOrderDetails is the Query to fetch the details of a single Order.
type GetOrderDetails struct {
	ID order.ID
}

// Name implements message.Message.
func (GetOrderDetails) Name() string { return "GetOrderDetails" }

var _ query.Handler[GetOrderDetails, OrderDetails] = GetOrderDetailsHandler{}

// GetOrderDetailsHandler is the Query Handler for GetOrderDetails queries.
//
// When a Redis client is provided, read results are cached with the
// configured TTL; cache failures are logged and never fail the query.
type GetOrderDetailsHandler struct {
	Conn     *pgxpool.Pool
	Cache    *redis.Client
	CacheTTL time.Duration
	Logger   logger.Logger
}

func cacheKey(id order.ID) string {
	return "order-details:" + id.String()
}

// Handle implements query.Handler.
func (h GetOrderDetailsHandler) Handle(
	ctx context.Context,
	q query.Envelope[GetOrderDetails],
) (OrderDetails, error) {
	id := q.Message.ID

	if details, ok := h.fromCache(ctx, id); ok {
		return details, nil
	}

	details, err := h.fromDatabase(ctx, id)
	if err != nil {
		return OrderDetails{}, err
	}

	h.toCache(ctx, id, details)

	return details, nil
}

func (h GetOrderDetailsHandler) fromCache(ctx context.Context, id order.ID) (OrderDetails, bool) {
	if h.Cache == nil {
		return OrderDetails{}, false
	}

	data, err := h.Cache.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OrderDetails{}, false
	}

	if err != nil {
		logger.Error(h.Logger, "failed to read order details from cache",
			logger.With("error", err.Error()),
		)

		return OrderDetails{}, false
	}

	var details OrderDetails
	if err := json.Unmarshal(data, &details); err != nil {
		logger.Error(h.Logger, "failed to decode cached order details",
			logger.With("error", err.Error()),
		)

		return OrderDetails{}, false
	}

	return details, true
}

func (h GetOrderDetailsHandler) toCache(ctx context.Context, id order.ID, details OrderDetails) {
	if h.Cache == nil {
		return
	}

	data, err := json.Marshal(details)
	if err != nil {
		logger.Error(h.Logger, "failed to encode order details for caching",
			logger.With("error", err.Error()),
		)

		return
	}

	if err := h.Cache.Set(ctx, cacheKey(id), data, h.CacheTTL).Err(); err != nil {
		logger.Error(h.Logger, "failed to write order details to cache",
			logger.With("error", err.Error()),
		)
	}
}

func (h GetOrderDetailsHandler) fromDatabase(ctx context.Context, id order.ID) (OrderDetails, error) {
	row := h.Conn.QueryRow(
		ctx,
		`SELECT order_id, customer_name, delivery_address, total, status,
			warehouse_id, weight, courier_name, status_history,
			placed_at, updated_at, shipped_at, delivered_at
		FROM order_details_view
		WHERE order_id = $1`,
		id.String(),
	)

	var (
		details    OrderDetails
		rawHistory []byte
	)

	err := row.Scan(
		&details.OrderID, &details.CustomerName, &details.DeliveryAddress,
		&details.Total, &details.Status,
		&details.WarehouseID, &details.Weight, &details.CourierName, &rawHistory,
		&details.PlacedAt, &details.UpdatedAt, &details.ShippedAt, &details.DeliveredAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return OrderDetails{}, fmt.Errorf("query.GetOrderDetailsHandler: %w", ErrOrderNotFound)
	}

	if err != nil {
		return OrderDetails{}, fmt.Errorf("query.GetOrderDetailsHandler: failed to read order details row, %w", err)
	}

	if err := json.Unmarshal(rawHistory, &details.StatusHistory); err != nil {
		return OrderDetails{}, fmt.Errorf("query.GetOrderDetailsHandler: failed to decode status history, %w", err)
	}

	return details, nil
}
