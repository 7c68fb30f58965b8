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

func TestPackOrderHandler(t *testing.T) {
	id := order.ID(uuid.New())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	handlerFactory := func(s event.Store) appcommand.PackOrderHandler {
		return appcommand.PackOrderHandler{
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

	t.Run("it packs a placed order", func(t *testing.T) {
		command.Scenario[appcommand.PackOrder, appcommand.PackOrderHandler]().
			Given(placed).
			When(command.ToEnvelope(appcommand.PackOrder{
				ID:          id,
				WarehouseID: "WH1",
				Weight:      2.5,
			})).
			Then(event.Persisted{
				StreamID: event.StreamID(id.String()),
				Version:  2,
				Envelope: event.ToEnvelope(order.WasPacked{
					OrderID:     id,
					WarehouseID: "WH1",
					Weight:      2.5,
					PackedAt:    now,
				}),
			}).
			AssertOn(t, handlerFactory)
	})

	t.Run("it fails when the order does not exist", func(t *testing.T) {
		command.Scenario[appcommand.PackOrder, appcommand.PackOrderHandler]().
			When(command.ToEnvelope(appcommand.PackOrder{
				ID:          id,
				WarehouseID: "WH1",
				Weight:      2.5,
			})).
			ThenError(aggregate.ErrRootNotFound).
			AssertOn(t, handlerFactory)
	})

	t.Run("it fails when the order has already been packed", func(t *testing.T) {
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

		command.Scenario[appcommand.PackOrder, appcommand.PackOrderHandler]().
			Given(placed, packed).
			When(command.ToEnvelope(appcommand.PackOrder{
				ID:          id,
				WarehouseID: "WH2",
				Weight:      3.0,
			})).
			ThenError(order.ErrAlreadyPacked).
			AssertOn(t, handlerFactory)
	})
}
