package aggregate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/get-eventually/logistics/event"
)

// ErrRootNotFound is returned when the Aggregate Root requested
// through a Repository was not found.
var ErrRootNotFound = fmt.Errorf("aggregate: root not found")

// Getter is the Repository interface component used to retrieve
// an Aggregate Root from some storage.
type Getter[I ID, T Root[I]] interface {
	Get(ctx context.Context, id I) (T, error)
}

// Saver is the Repository interface component used to save
// an Aggregate Root to some storage.
type Saver[I ID, T Root[I]] interface {
	Save(ctx context.Context, root T) error
}

// Repository is the interface used to get Aggregate Roots from and save them
// back to some storage.
type Repository[I ID, T Root[I]] interface {
	Getter[I, T]
	Saver[I, T]
}

// EventSourcedRepository provides an aggregate.Repository interface implementation
// that uses an event.Store to store and load the state of the Aggregate Root.
type EventSourcedRepository[I ID, T Root[I]] struct {
	eventStore event.Store
	typ        Type[I, T]
}

// NewEventSourcedRepository returns a new EventSourcedRepository implementation
// to store and load Aggregate Roots, specified by the aggregate.Type,
// using the provided event.Store implementation.
func NewEventSourcedRepository[I ID, T Root[I]](eventStore event.Store, typ Type[I, T]) EventSourcedRepository[I, T] {
	return EventSourcedRepository[I, T]{
		eventStore: eventStore,
		typ:        typ,
	}
}

// Get returns the Aggregate Root with the specified id, rebuilt by replaying
// its whole Event Stream from the Event Store.
//
// aggregate.ErrRootNotFound is returned if no Events for the specified
// Aggregate Root have been found.
func (repo EventSourcedRepository[I, T]) Get(ctx context.Context, id I) (T, error) {
	var zeroValue T

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamID := event.StreamID(id.String())
	eventStream := make(event.Stream, 1)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := repo.eventStore.Stream(ctx, eventStream, streamID); err != nil {
			return fmt.Errorf("aggregate.EventSourcedRepository: failed while reading events from stream, %w", err)
		}

		return nil
	})

	root := repo.typ.Factory()

	if err := RehydrateFromEvents[I](root, eventStream); err != nil {
		return zeroValue, fmt.Errorf("aggregate.EventSourcedRepository: failed to rehydrate aggregate root, %w", err)
	}

	if err := group.Wait(); err != nil {
		return zeroValue, err
	}

	if root.Version() == 0 {
		return zeroValue, ErrRootNotFound
	}

	return root, nil
}

// Save stores the Aggregate Root to the Event Store, by committing the
// new, uncommitted Domain Events recorded through the Root, if any.
//
// Versions are assigned by the Event Store on append; a concurrent writer
// racing on the same Aggregate surfaces as a version.ConflictError, in which
// case the caller should reload the Aggregate and re-apply its changes.
func (repo EventSourcedRepository[I, T]) Save(ctx context.Context, root T) error {
	events := root.FlushRecordedEvents()
	if len(events) == 0 {
		return nil
	}

	streamID := event.StreamID(root.AggregateID().String())

	if _, err := repo.eventStore.Append(ctx, streamID, events...); err != nil {
		return fmt.Errorf("aggregate.EventSourcedRepository: failed to commit recorded events, %w", err)
	}

	return nil
}
