package order

import "time"

// WasPlaced is the Domain Event recorded when a new Order is placed.
type WasPlaced struct {
	OrderID      ID        `json:"orderId"`
	CustomerName string    `json:"customerName"`
	Address      string    `json:"address"`
	Total        float64   `json:"total"`
	PlacedAt     time.Time `json:"placedAt"`
}

// Name implements message.Message.
func (WasPlaced) Name() string { return "OrderPlaced" }

// WasPacked is the Domain Event recorded when an Order gets packed
// in a warehouse.
type WasPacked struct {
	OrderID     ID        `json:"orderId"`
	WarehouseID string    `json:"warehouseId"`
	Weight      float64   `json:"weight"`
	PackedAt    time.Time `json:"packedAt"`
}

// Name implements message.Message.
func (WasPacked) Name() string { return "OrderPacked" }

// WasShipped is the Domain Event recorded when an Order is handed
// over to a courier.
type WasShipped struct {
	OrderID   ID        `json:"orderId"`
	Courier   string    `json:"courier"`
	ShippedAt time.Time `json:"shippedAt"`
}

// Name implements message.Message.
func (WasShipped) Name() string { return "OrderShipped" }

// AddressWasChanged is the Domain Event recorded when the delivery
// address of an Order is updated before shipment.
type AddressWasChanged struct {
	OrderID    ID        `json:"orderId"`
	NewAddress string    `json:"newAddress"`
	ChangedAt  time.Time `json:"changedAt"`
}

// Name implements message.Message.
func (AddressWasChanged) Name() string { return "DeliveryAddressChanged" }

// DeliveryHasFailed is the Domain Event recorded when a delivery
// attempt for a shipped Order fails.
type DeliveryHasFailed struct {
	OrderID  ID        `json:"orderId"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failedAt"`
}

// Name implements message.Message.
func (DeliveryHasFailed) Name() string { return "DeliveryAttemptFailed" }

// WasDelivered is the Domain Event recorded when an Order is
// successfully delivered to its customer.
type WasDelivered struct {
	OrderID     ID        `json:"orderId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Name implements message.Message.
func (WasDelivered) Name() string { return "OrderDelivered" }
