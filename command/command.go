// Package command contains types and interfaces for implementing Command Handlers,
// necessary for producing side effects in your Aggregates and system,
// and implement your Domain's business logic.
package command

import (
	"context"

	"github.com/get-eventually/logistics/message"
)

// Command is a specific kind of Message that represents an intent.
// Commands should be phrased in the present, imperative tense, such as "ActivateUser" or "CreateOrder".
type Command message.Message

// Envelope contains a Domain Command and its Metadata.
type Envelope[T Command] message.Envelope[T]

// ToEnvelope is a convenience function that wraps the provided Command type
// into an Envelope, with no metadata attached to it.
func ToEnvelope[T Command](cmd T) Envelope[T] {
	return Envelope[T]{
		Message:  cmd,
		Metadata: nil,
	}
}

// Handler is the interface that defines a Command Handler,
// a component that receives a specific kind of Command
// and executes the business logic related to that particular Command.
type Handler[T Command] interface {
	Handle(ctx context.Context, cmd Envelope[T]) error
}

// HandlerFunc is a functional type that implements the Handler interface.
// Useful for testing and stateless Handlers.
type HandlerFunc[T Command] func(ctx context.Context, cmd Envelope[T]) error

// Handle implements command.Handler.
func (fn HandlerFunc[T]) Handle(ctx context.Context, cmd Envelope[T]) error {
	return fn(ctx, cmd)
}
