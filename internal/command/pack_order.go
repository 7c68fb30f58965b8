package command

import (
	"context"
	"fmt"
	"time"

	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

// PackOrder is the Command used to mark an Order as packed in a warehouse.
type PackOrder struct {
	ID          order.ID
	WarehouseID string
	Weight      float64
}

// Name implements message.Message.
func (PackOrder) Name() string { return "PackOrder" }

var _ command.Handler[PackOrder] = PackOrderHandler{}

// PackOrderHandler is the Command Handler for PackOrder commands.
type PackOrderHandler struct {
	Clock      func() time.Time
	Repository order.Repository
}

// Handle implements command.Handler.
func (h PackOrderHandler) Handle(ctx context.Context, cmd command.Envelope[PackOrder]) error {
	o, err := h.Repository.Get(ctx, cmd.Message.ID)
	if err != nil {
		return fmt.Errorf("command.PackOrderHandler: failed to get order from repository, %w", err)
	}

	if err := o.Pack(cmd.Message.WarehouseID, cmd.Message.Weight, h.Clock()); err != nil {
		return fmt.Errorf("command.PackOrderHandler: failed to pack order, %w", err)
	}

	if err := h.Repository.Save(ctx, o); err != nil {
		return fmt.Errorf("command.PackOrderHandler: failed to save order to repository, %w", err)
	}

	return nil
}
