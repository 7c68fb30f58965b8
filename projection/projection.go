// Package projection provides components to build read-side Projections
// from the global, ordered log of Domain Events committed to the Event Store.
package projection

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/logger"
	"github.com/get-eventually/logistics/version"
)

// Projection is a read-side component fed with ordered pages of the global
// Event log by a Runner.
//
// Implementations must make ApplyBatch atomic with the checkpoint advance:
// after a crash, Checkpoint must return a sequence number such that re-applying
// every Event after it brings the Projection to a consistent state. Updating
// the projected state and the checkpoint in the same database transaction
// is the usual way to guarantee it.
type Projection interface {
	// Checkpoint returns the global sequence number of the last Event
	// successfully applied by the Projection.
	Checkpoint(ctx context.Context) (version.SequenceNumber, error)

	// ApplyBatch applies the given page of Events, ordered by global
	// sequence number, and advances the checkpoint past them.
	ApplyBatch(ctx context.Context, events []event.Persisted) error
}

// Default Runner settings, used when the zero value is provided.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultBatchSize    = 500
)

// Runner polls the global Event log and feeds ordered batches of newly
// committed Events to a Projection, resuming from the Projection's
// checkpoint on start.
//
// Errors returned by the Projection are treated as transient: the failed
// batch is logged and retried on the next poll, relying on the Projection's
// atomicity guarantee to avoid partial application.
type Runner struct {
	Projection Projection
	Streamer   event.SinceStreamer
	Logger     logger.Logger

	// PollInterval is the time between two polls of the Event log.
	// Defaults to DefaultPollInterval if unset.
	PollInterval time.Duration

	// BatchSize is the maximum number of Events fetched per poll.
	// Defaults to DefaultBatchSize if unset.
	BatchSize int
}

func (r Runner) pollInterval() time.Duration {
	if r.PollInterval > 0 {
		return r.PollInterval
	}

	return DefaultPollInterval
}

func (r Runner) batchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}

	return DefaultBatchSize
}

// Run starts the Runner loop, returning only when the context gets canceled.
func (r Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval())
	defer ticker.Stop()

	for {
		// Drain the backlog: keep fetching without waiting for the next tick
		// for as long as full batches come back.
		for {
			processed, err := r.runOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				logger.Error(r.Logger, "failed to apply projection batch, will retry",
					logger.With("error", err.Error()),
				)

				break
			}

			if processed < r.batchSize() {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r Runner) runOnce(ctx context.Context) (int, error) {
	checkpoint, err := r.Projection.Checkpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("projection.Runner: failed to read projection checkpoint, %w", err)
	}

	events, err := r.fetch(ctx, checkpoint)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	if err := r.Projection.ApplyBatch(ctx, events); err != nil {
		return 0, fmt.Errorf("projection.Runner: failed to apply events batch, %w", err)
	}

	return len(events), nil
}

func (r Runner) fetch(ctx context.Context, from version.SequenceNumber) ([]event.Persisted, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eventStream := make(event.Stream, 1)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return r.Streamer.StreamSince(ctx, eventStream, from, r.batchSize())
	})

	var events []event.Persisted
	for evt := range eventStream {
		events = append(events, evt)
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("projection.Runner: failed to stream events, %w", err)
	}

	return events, nil
}
