// Package version contains the types used to order Domain Events,
// both within a single Event Stream and across the whole Event Store.
package version

import "fmt"

// Version is the type to specify Event Stream versions.
// Versions start from 1, as they represent the length of a single Event Stream.
type Version uint32

// SequenceNumber is the global offset of a Domain Event in the Event Store,
// totally ordering events across all Event Streams.
type SequenceNumber int64

// ConflictError is returned by an Event Store when appending some events
// to an Event Stream while a concurrent writer has already committed
// one of the versions assigned to the new events.
//
// Detecting this error is the Optimistic Concurrency control point:
// callers should reload the Event Stream and re-apply their changes
// before retrying the append.
type ConflictError struct {
	StreamID string
	Version  Version
}

func (err ConflictError) Error() string {
	return fmt.Sprintf(
		"version.ConflictError: version %d of event stream '%s' has already been committed by a concurrent writer",
		err.Version,
		err.StreamID,
	)
}
