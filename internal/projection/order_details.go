// Package projection implements the read-side Projections of the
// order-fulfillment service.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/internal/domain/order"
	"github.com/get-eventually/logistics/postgres"
	"github.com/get-eventually/logistics/projection"
	"github.com/get-eventually/logistics/version"
)

// OrderDetailsProjectionName is the checkpoint name used by the
// order details Projection.
const OrderDetailsProjectionName = "order-details"

var _ projection.Projection = OrderDetails{}

// OrderDetails projects Order Domain Events into the order_details_view
// and problematic_orders read-model tables.
//
// Each batch of Events is applied in a single database transaction together
// with the checkpoint advance, so that a failure rolls back both and the
// next poll retries the identical range.
type OrderDetails struct {
	Conn *pgxpool.Pool
}

// Checkpoint implements projection.Projection.
func (p OrderDetails) Checkpoint(ctx context.Context) (version.SequenceNumber, error) {
	return postgres.ReadCheckpoint(ctx, p.Conn, OrderDetailsProjectionName)
}

// ApplyBatch implements projection.Projection.
func (p OrderDetails) ApplyBatch(ctx context.Context, events []event.Persisted) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := p.Conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to open database transaction, %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, evt := range events {
		if err := p.apply(ctx, tx, evt); err != nil {
			return err
		}
	}

	lastSequence := events[len(events)-1].SequenceNumber

	if err := postgres.WriteCheckpoint(ctx, tx, OrderDetailsProjectionName, lastSequence); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to advance projection checkpoint, %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to commit transaction, %w", err)
	}

	return nil
}

type statusHistoryEntry struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func marshalHistoryEntry(status order.Status, evt event.Persisted) ([]byte, error) {
	entry, err := json.Marshal(statusHistoryEntry{
		Status:    status.String(),
		Timestamp: evt.RecordedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("projection.OrderDetails: failed to marshal status history entry, %w", err)
	}

	return entry, nil
}

//nolint:gocognit // Single dispatch point over all the projected Domain Events.
func (p OrderDetails) apply(ctx context.Context, tx pgx.Tx, evt event.Persisted) error {
	switch msg := evt.Message.(type) {
	case order.WasPlaced:
		return p.applyPlaced(ctx, tx, msg, evt)

	case order.WasPacked:
		return p.applyPacked(ctx, tx, msg, evt)

	case order.WasShipped:
		return p.applyShipped(ctx, tx, msg, evt)

	case order.AddressWasChanged:
		return p.applyAddressChanged(ctx, tx, msg, evt)

	case order.DeliveryHasFailed:
		return p.applyDeliveryFailed(ctx, tx, msg, evt)

	case order.WasDelivered:
		return p.applyDelivered(ctx, tx, msg, evt)

	default:
		// Not all Domain Events necessarily concern this read model.
		return nil
	}
}

func (p OrderDetails) applyPlaced(ctx context.Context, tx pgx.Tx, msg order.WasPlaced, evt event.Persisted) error {
	entry, err := marshalHistoryEntry(order.StatusPlaced, evt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO order_details_view
			(order_id, customer_name, delivery_address, total, status, status_history, placed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, jsonb_build_array($6::jsonb), $7, $7)
		ON CONFLICT (order_id) DO NOTHING`,
		msg.OrderID.String(), msg.CustomerName, msg.Address, msg.Total,
		order.StatusPlaced.String(), entry, evt.RecordedAt.UTC(),
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to insert order details row, %w", err)
	}

	return nil
}

// applyStatusChange updates the order status and appends a status history
// entry. An unknown order id is a defensive no-op: per-stream ordering
// guarantees the placement event is projected first.
func (p OrderDetails) applyStatusChange(
	ctx context.Context,
	tx pgx.Tx,
	id order.ID,
	status order.Status,
	evt event.Persisted,
) error {
	entry, err := marshalHistoryEntry(status, evt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE order_details_view
		SET status = $2, status_history = status_history || $3::jsonb, updated_at = $4
		WHERE order_id = $1`,
		id.String(), status.String(), entry, evt.RecordedAt.UTC(),
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to update order status, %w", err)
	}

	return nil
}

func (p OrderDetails) applyPacked(
	ctx context.Context,
	tx pgx.Tx,
	msg order.WasPacked,
	evt event.Persisted,
) error {
	if err := p.applyStatusChange(ctx, tx, msg.OrderID, order.StatusPacked, evt); err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE order_details_view SET warehouse_id = $2, weight = $3 WHERE order_id = $1`,
		msg.OrderID.String(), msg.WarehouseID, msg.Weight,
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to set order packing details, %w", err)
	}

	return nil
}

func (p OrderDetails) applyShipped(
	ctx context.Context,
	tx pgx.Tx,
	msg order.WasShipped,
	evt event.Persisted,
) error {
	if err := p.applyStatusChange(ctx, tx, msg.OrderID, order.StatusShipped, evt); err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE order_details_view SET courier_name = $2, shipped_at = $3 WHERE order_id = $1`,
		msg.OrderID.String(), msg.Courier, msg.ShippedAt.UTC(),
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to set order shipment details, %w", err)
	}

	return nil
}

func (p OrderDetails) applyAddressChanged(
	ctx context.Context,
	tx pgx.Tx,
	msg order.AddressWasChanged,
	evt event.Persisted,
) error {
	if _, err := tx.Exec(
		ctx,
		`UPDATE order_details_view
		SET delivery_address = $2, updated_at = $3
		WHERE order_id = $1`,
		msg.OrderID.String(), msg.NewAddress, evt.RecordedAt.UTC(),
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to update delivery address, %w", err)
	}

	return nil
}

func (p OrderDetails) applyDeliveryFailed(
	ctx context.Context,
	tx pgx.Tx,
	msg order.DeliveryHasFailed,
	evt event.Persisted,
) error {
	if err := p.applyStatusChange(ctx, tx, msg.OrderID, order.StatusFailed, evt); err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO problematic_orders
			(order_id, customer_name, delivery_address, failure_reason, failed_attempts, last_failed_at)
		SELECT order_id, customer_name, delivery_address, $2, 1, $3
		FROM order_details_view
		WHERE order_id = $1
		ON CONFLICT (order_id) DO
		UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			failed_attempts = problematic_orders.failed_attempts + 1,
			last_failed_at = EXCLUDED.last_failed_at`,
		msg.OrderID.String(), msg.Reason, evt.RecordedAt.UTC(),
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to upsert problematic order row, %w", err)
	}

	return nil
}

func (p OrderDetails) applyDelivered(
	ctx context.Context,
	tx pgx.Tx,
	msg order.WasDelivered,
	evt event.Persisted,
) error {
	if err := p.applyStatusChange(ctx, tx, msg.OrderID, order.StatusDelivered, evt); err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE order_details_view SET delivered_at = $2 WHERE order_id = $1`,
		msg.OrderID.String(), msg.DeliveredAt.UTC(),
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to set order delivery time, %w", err)
	}

	if _, err := tx.Exec(
		ctx,
		`DELETE FROM problematic_orders WHERE order_id = $1`,
		msg.OrderID.String(),
	); err != nil {
		return fmt.Errorf("projection.OrderDetails: failed to remove problematic order row, %w", err)
	}

	return nil
}
