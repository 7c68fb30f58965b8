// Package event contains the types and abstractions to work with Domain Events,
// and the Event Store that persists them.
package event

import (
	"time"

	"github.com/get-eventually/logistics/message"
	"github.com/get-eventually/logistics/version"
)

// Event is a Message representing some Domain information that has happened
// in the past, which is of vital information to the Domain itself.
//
// Event type names should be phrased in the past tense, to enforce the notion
// of "information happened in the past".
type Event message.Message

// Envelope carries a Domain Event, together with optional Metadata attached to it.
type Envelope message.GenericEnvelope

// ToEnvelope is a convenience function that wraps the provided Domain Event
// into an Envelope, with no metadata attached to it.
func ToEnvelope(event Event) Envelope {
	return Envelope{
		Message:  event,
		Metadata: nil,
	}
}

// StreamID is the unique identifier of an Event Stream.
// Usually, this is the string representation of the Aggregate id.
type StreamID string

// Persisted represents a Domain Event that has been committed to the Event Store.
//
// Its Version orders the Event within its own Event Stream, while its
// SequenceNumber orders it globally, across all Event Streams in the Store.
type Persisted struct {
	StreamID
	version.Version
	Envelope

	SequenceNumber version.SequenceNumber
	RecordedAt     time.Time
}

// Raw is the persisted wire shape of a Domain Event: a type tag identifying
// the concrete Event type, plus its serialized payload.
type Raw struct {
	EventType string
	Data      []byte
}
