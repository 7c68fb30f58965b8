package command_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/get-eventually/logistics/aggregate"
	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/event"
	appcommand "github.com/get-eventually/logistics/internal/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

func TestShipOrderHandler(t *testing.T) {
	id := order.ID(uuid.New())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	handlerFactory := func(s event.Store) appcommand.ShipOrderHandler {
		return appcommand.ShipOrderHandler{
			Clock:      clock,
			Repository: aggregate.NewEventSourcedRepository(s, order.Type),
		}
	}

	placed := event.Persisted{
		StreamID: event.StreamID(id.String()),
		Version:  1,
		Envelope: event.ToEnvelope(order.WasPlaced{
			OrderID:      id,
			CustomerName: "Alice",
			Address:      "1 Main St",
			Total:        10.00,
			PlacedAt:     now,
		}),
	}

	packed := event.Persisted{
		StreamID: event.StreamID(id.String()),
		Version:  2,
		Envelope: event.ToEnvelope(order.WasPacked{
			OrderID:     id,
			WarehouseID: "WH1",
			Weight:      2.5,
			PackedAt:    now,
		}),
	}

	t.Run("it ships a packed order", func(t *testing.T) {
		command.Scenario[appcommand.ShipOrder, appcommand.ShipOrderHandler]().
			Given(placed, packed).
			When(command.ToEnvelope(appcommand.ShipOrder{
				ID:      id,
				Courier: "DHL",
			})).
			Then(event.Persisted{
				StreamID: event.StreamID(id.String()),
				Version:  3,
				Envelope: event.ToEnvelope(order.WasShipped{
					OrderID:   id,
					Courier:   "DHL",
					ShippedAt: now,
				}),
			}).
			AssertOn(t, handlerFactory)
	})

	t.Run("it fails when the order has not been packed yet", func(t *testing.T) {
		command.Scenario[appcommand.ShipOrder, appcommand.ShipOrderHandler]().
			Given(placed).
			When(command.ToEnvelope(appcommand.ShipOrder{
				ID:      id,
				Courier: "DHL",
			})).
			ThenError(order.ErrNotPacked).
			AssertOn(t, handlerFactory)
	})

	t.Run("it fails when the order does not exist", func(t *testing.T) {
		command.Scenario[appcommand.ShipOrder, appcommand.ShipOrderHandler]().
			When(command.ToEnvelope(appcommand.ShipOrder{
				ID:      id,
				Courier: "DHL",
			})).
			ThenError(aggregate.ErrRootNotFound).
			AssertOn(t, handlerFactory)
	})
}
