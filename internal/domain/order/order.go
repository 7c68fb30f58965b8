// Package order contains the domain types and implementations
// for the Order Aggregate Root.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/get-eventually/logistics/aggregate"
	"github.com/get-eventually/logistics/event"
)

// Status represents the fulfillment state of an Order.
type Status int

// All the fulfillment states an Order can be in.
//
// The zero value, StatusNone, means the Order has not been placed yet.
const (
	StatusNone Status = iota
	StatusPlaced
	StatusPacked
	StatusShipped
	StatusFailed
	StatusDelivered
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusPlaced:
		return "Placed"
	case StatusPacked:
		return "Packed"
	case StatusShipped:
		return "Shipped"
	case StatusFailed:
		return "Failed"
	case StatusDelivered:
		return "Delivered"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ID is the unique identifier for an Order.
type ID uuid.UUID

func (id ID) String() string { return uuid.UUID(id).String() }

// MarshalText implements encoding.TextMarshaler, so that Order IDs
// serialize to their canonical string representation in JSON payloads.
func (id ID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(data []byte) error { return (*uuid.UUID)(id).UnmarshalText(data) }

// Type represents the Order Aggregate Root type.
var Type = aggregate.Type[ID, *Order]{
	Name:    "Order",
	Factory: func() *Order { return new(Order) },
}

// Errors that can be returned by domain commands on an Order instance.
//
// All state-machine guard violations wrap ErrInvalidState, so callers
// can classify them with a single errors.Is check.
var (
	ErrInvalidState = errors.New("order.Order: invalid state transition")

	ErrAlreadyExists  = fmt.Errorf("%w: order has already been placed", ErrInvalidState)
	ErrNotPlaced      = fmt.Errorf("%w: order has not been placed yet", ErrInvalidState)
	ErrAlreadyPacked  = fmt.Errorf("%w: order has already been packed", ErrInvalidState)
	ErrNotPacked      = fmt.Errorf("%w: order has not been packed yet", ErrInvalidState)
	ErrAlreadyShipped = fmt.Errorf("%w: order has already been shipped", ErrInvalidState)
	ErrNotShipped     = fmt.Errorf("%w: order has not been shipped yet", ErrInvalidState)
	ErrConcluded      = fmt.Errorf("%w: order has already reached a terminal state", ErrInvalidState)

	ErrEmptyID           = errors.New("order.Order: empty id provided")
	ErrEmptyCustomerName = errors.New("order.Order: empty customer name provided")
	ErrEmptyAddress      = errors.New("order.Order: empty delivery address provided")
)

// Order is the Aggregate Root for the order-fulfillment domain.
//
// Its state advances only along the transition graph
// None -> Placed -> Packed -> Shipped -> {Failed | Delivered},
// and is rebuilt deterministically by replaying its Domain Events.
type Order struct {
	aggregate.BaseRoot

	ID              ID
	CustomerName    string
	DeliveryAddress string
	Total           float64
	WarehouseID     string
	Weight          float64
	CourierName     string
	Status          Status
}

// AggregateID implements aggregate.Root.
func (o *Order) AggregateID() ID {
	return o.ID
}

// IsShipped reports whether the Order has left the warehouse,
// i.e. has reached the Shipped state or one of its terminal outcomes.
func (o *Order) IsShipped() bool {
	return o.Status >= StatusShipped
}

// Apply implements aggregate.Root.
func (o *Order) Apply(evt event.Event) error {
	switch evt := evt.(type) {
	case WasPlaced:
		o.ID = evt.OrderID
		o.CustomerName = evt.CustomerName
		o.DeliveryAddress = evt.Address
		o.Total = evt.Total
		o.Status = StatusPlaced

	case WasPacked:
		o.WarehouseID = evt.WarehouseID
		o.Weight = evt.Weight
		o.Status = StatusPacked

	case WasShipped:
		o.CourierName = evt.Courier
		o.Status = StatusShipped

	case AddressWasChanged:
		o.DeliveryAddress = evt.NewAddress

	case DeliveryHasFailed:
		o.Status = StatusFailed

	case WasDelivered:
		o.Status = StatusDelivered

	default:
		return fmt.Errorf("order.Order.Apply: invalid event, %T", evt)
	}

	return nil
}

// Place creates a new Order in the Placed state.
//
// Both customer name and delivery address are required parameters:
// when empty, the function returns an error.
func Place(id ID, customerName, address string, total float64, now time.Time) (*Order, error) {
	wrapErr := func(err error) error {
		return fmt.Errorf("order.Place: failed to place new order, %w", err)
	}

	if uuid.UUID(id) == uuid.Nil {
		return nil, wrapErr(ErrEmptyID)
	}

	if customerName == "" {
		return nil, wrapErr(ErrEmptyCustomerName)
	}

	if address == "" {
		return nil, wrapErr(ErrEmptyAddress)
	}

	var order Order

	if err := aggregate.RecordThat[ID](&order, event.ToEnvelope(WasPlaced{
		OrderID:      id,
		CustomerName: customerName,
		Address:      address,
		Total:        total,
		PlacedAt:     now,
	})); err != nil {
		return nil, fmt.Errorf("order.Place: failed to apply domain event, %w", err)
	}

	return &order, nil
}

// Pack marks the Order as packed in the specified warehouse.
//
// The Order must be in the Placed state: packing twice, or packing
// after shipment, violates the state machine.
func (o *Order) Pack(warehouseID string, weight float64, now time.Time) error {
	wrapErr := func(err error) error {
		return fmt.Errorf("order.Pack: failed to pack order, %w", err)
	}

	switch {
	case o.Status == StatusNone:
		return wrapErr(ErrNotPlaced)
	case o.IsShipped():
		return wrapErr(ErrAlreadyShipped)
	case o.Status == StatusPacked:
		return wrapErr(ErrAlreadyPacked)
	}

	if err := aggregate.RecordThat[ID](o, event.ToEnvelope(WasPacked{
		OrderID:     o.ID,
		WarehouseID: warehouseID,
		Weight:      weight,
		PackedAt:    now,
	})); err != nil {
		return fmt.Errorf("order.Pack: failed to apply domain event, %w", err)
	}

	return nil
}

// Ship hands the Order over to the specified courier.
//
// The Order must be in the Packed state.
func (o *Order) Ship(courier string, now time.Time) error {
	wrapErr := func(err error) error {
		return fmt.Errorf("order.Ship: failed to ship order, %w", err)
	}

	switch {
	case o.IsShipped():
		return wrapErr(ErrAlreadyShipped)
	case o.Status != StatusPacked:
		return wrapErr(ErrNotPacked)
	}

	if err := aggregate.RecordThat[ID](o, event.ToEnvelope(WasShipped{
		OrderID:   o.ID,
		Courier:   courier,
		ShippedAt: now,
	})); err != nil {
		return fmt.Errorf("order.Ship: failed to apply domain event, %w", err)
	}

	return nil
}

// ChangeAddress updates the delivery address of the Order.
//
// The address is mutable only up until shipment.
func (o *Order) ChangeAddress(newAddress string, now time.Time) error {
	wrapErr := func(err error) error {
		return fmt.Errorf("order.ChangeAddress: failed to change delivery address, %w", err)
	}

	switch {
	case o.Status == StatusNone:
		return wrapErr(ErrNotPlaced)
	case o.IsShipped():
		return wrapErr(ErrAlreadyShipped)
	case newAddress == "":
		return wrapErr(ErrEmptyAddress)
	}

	if err := aggregate.RecordThat[ID](o, event.ToEnvelope(AddressWasChanged{
		OrderID:    o.ID,
		NewAddress: newAddress,
		ChangedAt:  now,
	})); err != nil {
		return fmt.Errorf("order.ChangeAddress: failed to apply domain event, %w", err)
	}

	return nil
}

// FailDelivery records a failed delivery attempt for the Order.
//
// The Order must be exactly in the Shipped state: delivery of an Order
// that has already reached a terminal outcome cannot fail.
func (o *Order) FailDelivery(reason string, now time.Time) error {
	wrapErr := func(err error) error {
		return fmt.Errorf("order.FailDelivery: failed to record delivery failure, %w", err)
	}

	switch o.Status {
	case StatusFailed, StatusDelivered:
		return wrapErr(ErrConcluded)
	case StatusShipped:
		// Guard satisfied.
	default:
		return wrapErr(ErrNotShipped)
	}

	if err := aggregate.RecordThat[ID](o, event.ToEnvelope(DeliveryHasFailed{
		OrderID:  o.ID,
		Reason:   reason,
		FailedAt: now,
	})); err != nil {
		return fmt.Errorf("order.FailDelivery: failed to apply domain event, %w", err)
	}

	return nil
}

// MarkDelivered records the successful delivery of the Order.
//
// The Order must be exactly in the Shipped state.
func (o *Order) MarkDelivered(at time.Time) error {
	wrapErr := func(err error) error {
		return fmt.Errorf("order.MarkDelivered: failed to mark order as delivered, %w", err)
	}

	switch o.Status {
	case StatusFailed, StatusDelivered:
		return wrapErr(ErrConcluded)
	case StatusShipped:
		// Guard satisfied.
	default:
		return wrapErr(ErrNotShipped)
	}

	if err := aggregate.RecordThat[ID](o, event.ToEnvelope(WasDelivered{
		OrderID:     o.ID,
		DeliveredAt: at,
	})); err != nil {
		return fmt.Errorf("order.MarkDelivered: failed to apply domain event, %w", err)
	}

	return nil
}
