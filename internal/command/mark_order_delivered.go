package command

import (
	"context"
	"fmt"
	"time"

	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

// MarkOrderDelivered is the Command used to record the successful
// delivery of a shipped Order.
type MarkOrderDelivered struct {
	ID          order.ID
	DeliveredAt time.Time
}

// Name implements message.Message.
func (MarkOrderDelivered) Name() string { return "MarkOrderDelivered" }

var _ command.Handler[MarkOrderDelivered] = MarkOrderDeliveredHandler{}

// MarkOrderDeliveredHandler is the Command Handler for MarkOrderDelivered commands.
type MarkOrderDeliveredHandler struct {
	Clock      func() time.Time
	Repository order.Repository
}

// Handle implements command.Handler.
func (h MarkOrderDeliveredHandler) Handle(ctx context.Context, cmd command.Envelope[MarkOrderDelivered]) error {
	o, err := h.Repository.Get(ctx, cmd.Message.ID)
	if err != nil {
		return fmt.Errorf("command.MarkOrderDeliveredHandler: failed to get order from repository, %w", err)
	}

	deliveredAt := cmd.Message.DeliveredAt
	if deliveredAt.IsZero() {
		deliveredAt = h.Clock()
	}

	if err := o.MarkDelivered(deliveredAt); err != nil {
		return fmt.Errorf("command.MarkOrderDeliveredHandler: failed to mark order as delivered, %w", err)
	}

	if err := h.Repository.Save(ctx, o); err != nil {
		return fmt.Errorf("command.MarkOrderDeliveredHandler: failed to save order to repository, %w", err)
	}

	return nil
}
