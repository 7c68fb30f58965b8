package messaging

import (
	"context"
	"fmt"

	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/projection"
	"github.com/get-eventually/logistics/serde"
	"github.com/get-eventually/logistics/version"
)

// RelayProjectionName is the checkpoint name used by the integration
// event Relay.
const RelayProjectionName = "order-integration-events"

// Checkpointer tracks the position of the Relay on the global Event log.
type Checkpointer interface {
	Read(ctx context.Context) (version.SequenceNumber, error)
	Write(ctx context.Context, checkpoint version.SequenceNumber) error
}

var _ projection.Projection = Relay{}

// Relay is a projection.Projection that forwards committed Domain Events
// to a Publisher as integration events.
//
// The checkpoint is advanced only after the whole batch has been published,
// so a crash in between republishes the batch: consumers get at-least-once
// delivery and must deduplicate by sequence number.
type Relay struct {
	Publisher    Publisher
	Checkpointer Checkpointer
	Serializer   serde.Serializer[event.Event, event.Raw]
}

// Checkpoint implements projection.Projection.
func (r Relay) Checkpoint(ctx context.Context) (version.SequenceNumber, error) {
	checkpoint, err := r.Checkpointer.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("messaging.Relay: failed to read checkpoint, %w", err)
	}

	return checkpoint, nil
}

// ApplyBatch implements projection.Projection.
func (r Relay) ApplyBatch(ctx context.Context, events []event.Persisted) error {
	if len(events) == 0 {
		return nil
	}

	integrationEvents := make([]IntegrationEvent, 0, len(events))

	for _, evt := range events {
		raw, err := r.Serializer.Serialize(evt.Message)
		if err != nil {
			return fmt.Errorf("messaging.Relay: failed to serialize domain event, %w", err)
		}

		integrationEvents = append(integrationEvents, IntegrationEvent{
			EventType:  raw.EventType,
			OrderID:    string(evt.StreamID),
			Sequence:   int64(evt.SequenceNumber),
			Payload:    raw.Data,
			RecordedAt: evt.RecordedAt,
		})
	}

	if err := r.Publisher.Publish(ctx, integrationEvents...); err != nil {
		return fmt.Errorf("messaging.Relay: failed to publish integration events, %w", err)
	}

	lastSequence := events[len(events)-1].SequenceNumber

	if err := r.Checkpointer.Write(ctx, lastSequence); err != nil {
		return fmt.Errorf("messaging.Relay: failed to advance checkpoint, %w", err)
	}

	return nil
}
