package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/get-eventually/logistics/version"
)

// Interface implementation assertion.
var _ Store = new(InMemoryStore)

// InMemoryStore is a thread-safe, in-memory event.Store implementation.
type InMemoryStore struct {
	mx      sync.RWMutex
	log     []Persisted
	streams map[StreamID][]Persisted
}

// NewInMemoryStore creates a new event.InMemoryStore instance.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		streams: make(map[StreamID][]Persisted),
	}
}

func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("event.InMemoryStore: context error, %w", err)
	}

	return nil
}

// Append inserts the specified Domain Events into the Event Stream specified
// by the current instance, returning the new version of the Event Stream.
//
// Versions are assigned by the Store, continuing from the current length of
// the Event Stream; the global Sequence Number continues from the overall
// length of the Event log. Appending no Events is a no-op.
func (es *InMemoryStore) Append(_ context.Context, id StreamID, events ...Envelope) (version.Version, error) {
	es.mx.Lock()
	defer es.mx.Unlock()

	if len(events) == 0 {
		return version.Version(len(es.streams[id])), nil
	}

	currentVersion := version.Version(len(es.streams[id]))
	now := time.Now()

	for i, event := range events {
		persisted := Persisted{
			StreamID:       id,
			Version:        currentVersion + version.Version(i) + 1,
			Envelope:       event,
			SequenceNumber: version.SequenceNumber(len(es.log)) + 1,
			RecordedAt:     now,
		}

		es.log = append(es.log, persisted)
		es.streams[id] = append(es.streams[id], persisted)
	}

	return version.Version(len(es.streams[id])), nil
}

// Stream streams the committed Events of the specified Event Stream onto
// the provided channel, ordered by global Sequence Number.
//
// Note: this call is synchronous, and will return when all the Events
// have been successfully written to the provided channel, or when
// the context has been canceled. The channel is closed on return.
func (es *InMemoryStore) Stream(ctx context.Context, eventStream StreamWrite, id StreamID) error {
	es.mx.RLock()
	defer es.mx.RUnlock()
	defer close(eventStream)

	events, ok := es.streams[id]
	if !ok {
		return nil
	}

	for _, event := range events {
		select {
		case eventStream <- event:
		case <-ctx.Done():
			return contextErr(ctx)
		}
	}

	return nil
}

// StreamSince streams the next page of committed Events with a global
// Sequence Number strictly greater than the provided one, across all
// Event Streams, up to limit entries. The channel is closed on return.
func (es *InMemoryStore) StreamSince(
	ctx context.Context,
	eventStream StreamWrite,
	from version.SequenceNumber,
	limit int,
) error {
	es.mx.RLock()
	defer es.mx.RUnlock()
	defer close(eventStream)

	sent := 0

	for _, event := range es.log {
		if event.SequenceNumber <= from {
			continue
		}

		if limit > 0 && sent >= limit {
			break
		}

		select {
		case eventStream <- event:
			sent++
		case <-ctx.Done():
			return contextErr(ctx)
		}
	}

	return nil
}
