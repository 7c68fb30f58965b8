// Package command implements the application-level Command Handlers
// that drive the Order Aggregate Root.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/get-eventually/logistics/aggregate"
	"github.com/get-eventually/logistics/command"
	"github.com/get-eventually/logistics/internal/domain/order"
)

// PlaceOrder is the Command used to place a new Order.
type PlaceOrder struct {
	ID           order.ID
	CustomerName string
	Address      string
	Total        float64
}

// Name implements message.Message.
func (PlaceOrder) Name() string { return "PlaceOrder" }

var _ command.Handler[PlaceOrder] = PlaceOrderHandler{}

// PlaceOrderHandler is the Command Handler for PlaceOrder commands.
type PlaceOrderHandler struct {
	Clock      func() time.Time
	Repository order.Repository
}

// Handle implements command.Handler.
//
// Placing an Order whose Event Stream already exists fails with
// order.ErrAlreadyExists.
func (h PlaceOrderHandler) Handle(ctx context.Context, cmd command.Envelope[PlaceOrder]) error {
	switch _, err := h.Repository.Get(ctx, cmd.Message.ID); {
	case err == nil:
		return fmt.Errorf("command.PlaceOrderHandler: %w", order.ErrAlreadyExists)
	case !errors.Is(err, aggregate.ErrRootNotFound):
		return fmt.Errorf("command.PlaceOrderHandler: failed to check for existing order, %w", err)
	}

	newOrder, err := order.Place(
		cmd.Message.ID,
		cmd.Message.CustomerName,
		cmd.Message.Address,
		cmd.Message.Total,
		h.Clock(),
	)
	if err != nil {
		return fmt.Errorf("command.PlaceOrderHandler: failed to place new order, %w", err)
	}

	if err := h.Repository.Save(ctx, newOrder); err != nil {
		return fmt.Errorf("command.PlaceOrderHandler: failed to save order to repository, %w", err)
	}

	return nil
}
