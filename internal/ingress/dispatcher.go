package ingress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/get-eventually/logistics/command"
	appcommand "github.com/get-eventually/logistics/internal/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

// Dispatcher routes decoded command Envelopes to their matching
// Command Handlers.
type Dispatcher struct {
	PlaceOrderHandler    command.Handler[appcommand.PlaceOrder]
	PackOrderHandler     command.Handler[appcommand.PackOrder]
	ChangeAddressHandler command.Handler[appcommand.ChangeAddress]
	FailDeliveryHandler  command.Handler[appcommand.FailDelivery]
}

type placeOrderPayload struct {
	OrderID      uuid.UUID `json:"orderId"`
	CustomerName string    `json:"customerName"`
	Address      string    `json:"address"`
	Total        float64   `json:"total"`
}

type packOrderPayload struct {
	OrderID     uuid.UUID `json:"orderId"`
	WarehouseID string    `json:"warehouseId"`
	Weight      float64   `json:"weight"`
}

type changeAddressPayload struct {
	OrderID    uuid.UUID `json:"orderId"`
	NewAddress string    `json:"newAddress"`
}

type failDeliveryPayload struct {
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}

func decodePayload[T any](data json.RawMessage) (T, error) {
	var payload T

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("%w, %s", ErrMalformedPayload, err)
	}

	return payload, nil
}

// Dispatch decodes the Envelope payload into its specific Command shape
// and invokes the matching Command Handler.
//
// An unrecognized command type fails with ErrUnknownCommandType, an
// undecodable payload with ErrMalformedPayload. Handler errors propagate
// unchanged.
func (d Dispatcher) Dispatch(ctx context.Context, envelope Envelope) error {
	switch envelope.CommandType {
	case CommandTypePlaceOrder:
		payload, err := decodePayload[placeOrderPayload](envelope.Payload)
		if err != nil {
			return err
		}

		// The order id is optional on placement: generate one when absent.
		if payload.OrderID == uuid.Nil {
			payload.OrderID = uuid.New()
		}

		return d.PlaceOrderHandler.Handle(ctx, command.ToEnvelope(appcommand.PlaceOrder{
			ID:           order.ID(payload.OrderID),
			CustomerName: payload.CustomerName,
			Address:      payload.Address,
			Total:        payload.Total,
		}))

	case CommandTypePackOrder:
		payload, err := decodePayload[packOrderPayload](envelope.Payload)
		if err != nil {
			return err
		}

		return d.PackOrderHandler.Handle(ctx, command.ToEnvelope(appcommand.PackOrder{
			ID:          order.ID(payload.OrderID),
			WarehouseID: payload.WarehouseID,
			Weight:      payload.Weight,
		}))

	case CommandTypeChangeAddress:
		payload, err := decodePayload[changeAddressPayload](envelope.Payload)
		if err != nil {
			return err
		}

		return d.ChangeAddressHandler.Handle(ctx, command.ToEnvelope(appcommand.ChangeAddress{
			ID:         order.ID(payload.OrderID),
			NewAddress: payload.NewAddress,
		}))

	case CommandTypeFailDelivery:
		payload, err := decodePayload[failDeliveryPayload](envelope.Payload)
		if err != nil {
			return err
		}

		return d.FailDeliveryHandler.Handle(ctx, command.ToEnvelope(appcommand.FailDelivery{
			ID:     order.ID(payload.OrderID),
			Reason: payload.Reason,
		}))

	default:
		return fmt.Errorf("%w, %q", ErrUnknownCommandType, envelope.CommandType)
	}
}
