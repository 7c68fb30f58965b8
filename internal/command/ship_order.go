package command

import (
	"context"
	"fmt"
	"time"

	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

// ShipOrder is the Command used to hand an Order over to a courier.
type ShipOrder struct {
	ID      order.ID
	Courier string
}

// Name implements message.Message.
func (ShipOrder) Name() string { return "ShipOrder" }

var _ command.Handler[ShipOrder] = ShipOrderHandler{}

// ShipOrderHandler is the Command Handler for ShipOrder commands.
type ShipOrderHandler struct {
	Clock      func() time.Time
	Repository order.Repository
}

// Handle implements command.Handler.
func (h ShipOrderHandler) Handle(ctx context.Context, cmd command.Envelope[ShipOrder]) error {
	o, err := h.Repository.Get(ctx, cmd.Message.ID)
	if err != nil {
		return fmt.Errorf("command.ShipOrderHandler: failed to get order from repository, %w", err)
	}

	if err := o.Ship(cmd.Message.Courier, h.Clock()); err != nil {
		return fmt.Errorf("command.ShipOrderHandler: failed to ship order, %w", err)
	}

	if err := h.Repository.Save(ctx, o); err != nil {
		return fmt.Errorf("command.ShipOrderHandler: failed to save order to repository, %w", err)
	}

	return nil
}
