package postgres

import (
	"context"
	"fmt"

	"github.com/get-eventually/logistics/version"
)

// ReadCheckpoint returns the last global sequence number processed by the
// named projection, lazily registering the projection at sequence 0
// on its first read.
func ReadCheckpoint(ctx context.Context, db Querier, name string) (version.SequenceNumber, error) {
	if _, err := db.Exec(
		ctx,
		`INSERT INTO projection_checkpoints (projection_name, last_sequence)
		VALUES ($1, 0)
		ON CONFLICT (projection_name) DO NOTHING`,
		name,
	); err != nil {
		return 0, fmt.Errorf("postgres.ReadCheckpoint: failed to register projection, %w", err)
	}

	row := db.QueryRow(
		ctx,
		`SELECT last_sequence FROM projection_checkpoints WHERE projection_name = $1`,
		name,
	)

	var checkpoint version.SequenceNumber
	if err := row.Scan(&checkpoint); err != nil {
		return 0, fmt.Errorf("postgres.ReadCheckpoint: failed to read projection checkpoint, %w", err)
	}

	return checkpoint, nil
}

// WriteCheckpoint records the last global sequence number processed by the
// named projection.
//
// Run it on the same Querier (typically a pgx.Tx) used to apply the projected
// state changes, so that the checkpoint moves atomically with them.
func WriteCheckpoint(ctx context.Context, db Querier, name string, checkpoint version.SequenceNumber) error {
	if _, err := db.Exec(
		ctx,
		`INSERT INTO projection_checkpoints (projection_name, last_sequence, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (projection_name) DO
		UPDATE SET last_sequence = $2, updated_at = now()`,
		name, checkpoint,
	); err != nil {
		return fmt.Errorf("postgres.WriteCheckpoint: failed to write projection checkpoint, %w", err)
	}

	return nil
}

// Checkpointer reads and writes projection checkpoints using the
// provided database connection.
type Checkpointer struct {
	Conn Querier
	Name string
}

// Read returns the last recorded checkpoint for the projection.
func (c Checkpointer) Read(ctx context.Context) (version.SequenceNumber, error) {
	return ReadCheckpoint(ctx, c.Conn, c.Name)
}

// Write records the new checkpoint for the projection.
func (c Checkpointer) Write(ctx context.Context, checkpoint version.SequenceNumber) error {
	return WriteCheckpoint(ctx, c.Conn, c.Name, checkpoint)
}
