package command

import (
	"context"
	"fmt"
	"time"

	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

// FailDelivery is the Command used to record a failed delivery attempt
// for a shipped Order.
type FailDelivery struct {
	ID     order.ID
	Reason string
}

// Name implements message.Message.
func (FailDelivery) Name() string { return "FailDelivery" }

var _ command.Handler[FailDelivery] = FailDeliveryHandler{}

// FailDeliveryHandler is the Command Handler for FailDelivery commands.
type FailDeliveryHandler struct {
	Clock      func() time.Time
	Repository order.Repository
}

// Handle implements command.Handler.
func (h FailDeliveryHandler) Handle(ctx context.Context, cmd command.Envelope[FailDelivery]) error {
	o, err := h.Repository.Get(ctx, cmd.Message.ID)
	if err != nil {
		return fmt.Errorf("command.FailDeliveryHandler: failed to get order from repository, %w", err)
	}

	if err := o.FailDelivery(cmd.Message.Reason, h.Clock()); err != nil {
		return fmt.Errorf("command.FailDeliveryHandler: failed to record delivery failure, %w", err)
	}

	if err := h.Repository.Save(ctx, o); err != nil {
		return fmt.Errorf("command.FailDeliveryHandler: failed to save order to repository, %w", err)
	}

	return nil
}
