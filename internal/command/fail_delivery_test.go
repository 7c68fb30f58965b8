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

func TestFailDeliveryHandler(t *testing.T) {
	id := order.ID(uuid.New())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	handlerFactory := func(s event.Store) appcommand.FailDeliveryHandler {
		return appcommand.FailDeliveryHandler{
			Clock:      clock,
			Repository: aggregate.NewEventSourcedRepository(s, order.Type),
		}
	}

	history := []event.Persisted{
		{
			StreamID: event.StreamID(id.String()),
			Version:  1,
			Envelope: event.ToEnvelope(order.WasPlaced{
				OrderID:      id,
				CustomerName: "Alice",
				Address:      "1 Main St",
				Total:        10.00,
				PlacedAt:     now,
			}),
		},
		{
			StreamID: event.StreamID(id.String()),
			Version:  2,
			Envelope: event.ToEnvelope(order.WasPacked{
				OrderID:     id,
				WarehouseID: "WH1",
				Weight:      2.5,
				PackedAt:    now,
			}),
		},
		{
			StreamID: event.StreamID(id.String()),
			Version:  3,
			Envelope: event.ToEnvelope(order.WasShipped{
				OrderID:   id,
				Courier:   "DHL",
				ShippedAt: now,
			}),
		},
	}

	t.Run("it records a failed delivery attempt on a shipped order", func(t *testing.T) {
		command.Scenario[appcommand.FailDelivery, appcommand.FailDeliveryHandler]().
			Given(history...).
			When(command.ToEnvelope(appcommand.FailDelivery{
				ID:     id,
				Reason: "no answer",
			})).
			Then(event.Persisted{
				StreamID: event.StreamID(id.String()),
				Version:  4,
				Envelope: event.ToEnvelope(order.DeliveryHasFailed{
					OrderID:  id,
					Reason:   "no answer",
					FailedAt: now,
				}),
			}).
			AssertOn(t, handlerFactory)
	})

	t.Run("it fails when the order has not been shipped yet", func(t *testing.T) {
		command.Scenario[appcommand.FailDelivery, appcommand.FailDeliveryHandler]().
			Given(history[:2]...).
			When(command.ToEnvelope(appcommand.FailDelivery{
				ID:     id,
				Reason: "no answer",
			})).
			ThenError(order.ErrNotShipped).
			AssertOn(t, handlerFactory)
	})
}
