package command

import (
	"context"
	"fmt"
	"time"

	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

// ChangeAddress is the Command used to update the delivery address
// of an Order before shipment.
type ChangeAddress struct {
	ID         order.ID
	NewAddress string
}

// Name implements message.Message.
func (ChangeAddress) Name() string { return "ChangeAddress" }

var _ command.Handler[ChangeAddress] = ChangeAddressHandler{}

// ChangeAddressHandler is the Command Handler for ChangeAddress commands.
type ChangeAddressHandler struct {
	Clock      func() time.Time
	Repository order.Repository
}

// Handle implements command.Handler.
func (h ChangeAddressHandler) Handle(ctx context.Context, cmd command.Envelope[ChangeAddress]) error {
	o, err := h.Repository.Get(ctx, cmd.Message.ID)
	if err != nil {
		return fmt.Errorf("command.ChangeAddressHandler: failed to get order from repository, %w", err)
	}

	if err := o.ChangeAddress(cmd.Message.NewAddress, h.Clock()); err != nil {
		return fmt.Errorf("command.ChangeAddressHandler: failed to change delivery address, %w", err)
	}

	if err := h.Repository.Save(ctx, o); err != nil {
		return fmt.Errorf("command.ChangeAddressHandler: failed to save order to repository, %w", err)
	}

	return nil
}
