package event

import (
	"context"

	"github.com/get-eventually/logistics/version"
)

// Appender is the Event Store interface used to commit new Domain Events
// to an Event Stream.
//
// The Store assigns versions to the appended Events itself, deriving the
// next version from a fresh read of the target Event Stream: callers do not
// supply an expected version. Concurrent writers racing on the same Event
// Stream are arbitrated by the Store's uniqueness guarantee on
// (stream id, version), surfaced as a version.ConflictError.
type Appender interface {
	Append(ctx context.Context, id StreamID, events ...Envelope) (version.Version, error)
}

// Streamer is the Event Store interface used to stream the full history
// of an Event Stream, ordered by global Sequence Number.
//
// The Event Stream channel is closed by the Store when all matching
// Events have been streamed, or an error occurred.
type Streamer interface {
	Stream(ctx context.Context, eventStream StreamWrite, id StreamID) error
}

// SinceStreamer is the Event Store interface used to tail the global Event log:
// it streams the next page of Events with a Sequence Number strictly greater
// than the provided one, across all Event Streams, capped at limit entries.
type SinceStreamer interface {
	StreamSince(ctx context.Context, eventStream StreamWrite, from version.SequenceNumber, limit int) error
}

// Store represents an Event Store, the storage component for Domain Events.
type Store interface {
	Appender
	Streamer
	SinceStreamer
}

// FusedStore is a convenience type to fuse multiple Event Store interfaces
// where you might need to extend the functionality of the Store only partially.
type FusedStore struct {
	Appender
	Streamer
	SinceStreamer
}
