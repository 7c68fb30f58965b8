package event

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stream is a bidirectional channel of Persisted Domain Events.
type Stream = chan Persisted

// StreamRead is the read-only side of a Stream, used by Event Stream consumers.
type StreamRead = <-chan Persisted

// StreamWrite is the write-only side of a Stream, used by Event Stream producers.
type StreamWrite = chan<- Persisted

// StreamToSlice synchronously exhausts the Event Stream produced by the
// provided closure into an event.Persisted slice, and returns an error
// if the Stream origin fails with one.
func StreamToSlice(ctx context.Context, f func(ctx context.Context, eventStream StreamWrite) error) ([]Persisted, error) {
	ch := make(chan Persisted, 1)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error { return f(ctx, ch) })

	var events []Persisted
	for event := range ch {
		events = append(events, event)
	}

	return events, group.Wait()
}

// SliceToStream produces a closed, buffered Event Stream out of the provided
// event.Persisted slice. Useful to rehydrate Aggregates in tests.
func SliceToStream(events []Persisted) StreamRead {
	ch := make(chan Persisted, len(events))

	for _, event := range events {
		ch <- event
	}

	close(ch)

	return ch
}
