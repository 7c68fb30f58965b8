package event

import (
	"context"
	"sync"

	"github.com/get-eventually/logistics/version"
)

// TrackingEventStore is an Appender decorator that keeps track of the Domain
// Events it has successfully committed. Useful for testing the side effects
// of Command Handlers.
type TrackingEventStore struct {
	Appender

	mx       sync.RWMutex
	recorded []Persisted
}

// NewTrackingEventStore wraps the provided Appender to track the Domain Events
// committed through it.
func NewTrackingEventStore(appender Appender) *TrackingEventStore {
	return &TrackingEventStore{Appender: appender}
}

// Recorded returns the Domain Events committed through the decorated Appender,
// in commit order. Global Sequence Numbers and recording timestamps are not
// tracked, only Stream identifiers and versions.
func (es *TrackingEventStore) Recorded() []Persisted {
	es.mx.RLock()
	defer es.mx.RUnlock()

	return es.recorded
}

// Append delegates to the decorated Appender and, on success, records
// the committed Domain Events with their Store-assigned versions.
func (es *TrackingEventStore) Append(ctx context.Context, id StreamID, events ...Envelope) (version.Version, error) {
	es.mx.Lock()
	defer es.mx.Unlock()

	newVersion, err := es.Appender.Append(ctx, id, events...)
	if err != nil {
		return newVersion, err
	}

	firstVersion := newVersion - version.Version(len(events))

	for i, event := range events {
		es.recorded = append(es.recorded, Persisted{
			StreamID: id,
			Version:  firstVersion + version.Version(i) + 1,
			Envelope: event,
		})
	}

	return newVersion, nil
}
