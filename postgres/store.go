// Package postgres provides components of the library using PostgreSQL as backend,
// such as the Event Store and the Projection checkpoints.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/message"
	"github.com/get-eventually/logistics/serde"
	"github.com/get-eventually/logistics/version"
)

// Postgres error code raised on unique index violations.
const uniqueViolationErrCode = "23505"

// Querier is the interface to perform queries on a PostgreSQL database,
// implemented by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ event.Store = EventStore{}

// EventStore is an event.Store implementation targeted to PostgreSQL databases.
//
// The implementation uses a single, append-only "events" table, where each
// row is assigned a monotonically-increasing global sequence number and
// a per-stream version. A unique index on (event_stream_id, version)
// arbitrates concurrent writers on the same Event Stream.
type EventStore struct {
	Conn  *pgxpool.Pool
	Serde serde.Serde[event.Event, event.Raw]
}

// Append implements the event.Appender interface.
//
// The next version for the Event Stream is derived from a fresh read of the
// stream inside the same transaction. Two writers racing on the same stream
// will derive the same version: the first one to commit wins, the second
// hits the unique index and receives a version.ConflictError.
func (es EventStore) Append(ctx context.Context, id event.StreamID, events ...event.Envelope) (version.Version, error) {
	if len(events) == 0 {
		return es.streamVersion(ctx, id)
	}

	tx, err := es.Conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return 0, fmt.Errorf("postgres.EventStore: failed to open database transaction, %w", err)
	}

	defer func() {
		// NOTE: should not have effect if the transaction has been committed.
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(
		ctx,
		`SELECT COALESCE(MAX("version"), 0) FROM events WHERE event_stream_id = $1`,
		id,
	)

	var oldVersion version.Version
	if err := row.Scan(&oldVersion); err != nil {
		return 0, fmt.Errorf("postgres.EventStore: failed to read current event stream version, %w", err)
	}

	for i, evt := range events {
		eventVersion := oldVersion + version.Version(i) + 1

		if err := appendDomainEvent(ctx, tx, es.Serde, id, eventVersion, evt); err != nil {
			return 0, err
		}
	}

	newVersion := oldVersion + version.Version(len(events))

	if err := tx.Commit(ctx); err != nil {
		if conflictErr, ok := isConflictError(err, id, oldVersion+1); ok {
			return 0, conflictErr
		}

		return 0, fmt.Errorf("postgres.EventStore: failed to commit transaction, %w", err)
	}

	return newVersion, nil
}

func (es EventStore) streamVersion(ctx context.Context, id event.StreamID) (version.Version, error) {
	row := es.Conn.QueryRow(
		ctx,
		`SELECT COALESCE(MAX("version"), 0) FROM events WHERE event_stream_id = $1`,
		id,
	)

	var v version.Version
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("postgres.EventStore: failed to read current event stream version, %w", err)
	}

	return v, nil
}

func appendDomainEvent(
	ctx context.Context,
	tx pgx.Tx,
	eventSerializer serde.Serializer[event.Event, event.Raw],
	id event.StreamID,
	eventVersion version.Version,
	evt event.Envelope,
) error {
	raw, err := eventSerializer.Serialize(evt.Message)
	if err != nil {
		return fmt.Errorf("postgres.EventStore: failed to serialize domain event, %w", err)
	}

	metadata, err := serializeMetadata(evt.Metadata)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO events (event_stream_id, "version", "type", event, metadata, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, eventVersion, raw.EventType, raw.Data, metadata, time.Now().UTC(),
	); err != nil {
		if conflictErr, ok := isConflictError(err, id, eventVersion); ok {
			return conflictErr
		}

		return fmt.Errorf("postgres.EventStore: failed to append new domain event to event store, %w", err)
	}

	return nil
}

func isConflictError(err error, id event.StreamID, v version.Version) (error, bool) {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationErrCode {
		return fmt.Errorf(
			"postgres.EventStore: event stream version check failed, %w",
			version.ConflictError{
				StreamID: string(id),
				Version:  v,
			},
		), true
	}

	return nil, false
}

func serializeMetadata(metadata message.Metadata) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("postgres.EventStore: failed to marshal metadata to json, %w", err)
	}

	return data, nil
}

// Stream implements the event.Streamer interface.
func (es EventStore) Stream(ctx context.Context, eventStream event.StreamWrite, id event.StreamID) error {
	defer close(eventStream)

	rows, err := es.Conn.Query(
		ctx,
		`SELECT global_sequence, "version", "type", event, metadata, recorded_at
		FROM events
		WHERE event_stream_id = $1
		ORDER BY global_sequence`,
		id,
	)
	if err != nil {
		return fmt.Errorf("postgres.EventStore: failed to query events table, %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		evt, err := es.scanPersistedEvent(rows, id)
		if err != nil {
			return err
		}

		select {
		case eventStream <- evt:
		case <-ctx.Done():
			return fmt.Errorf("postgres.EventStore: context error, %w", ctx.Err())
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres.EventStore: failed while reading event rows, %w", err)
	}

	return nil
}

// StreamSince implements the event.SinceStreamer interface.
//
// It streams the next page of committed Events across all Event Streams,
// with a global sequence number strictly greater than the provided one,
// capped at limit entries. Use it to tail the global Event log, e.g. from
// a projection.Runner.
func (es EventStore) StreamSince(
	ctx context.Context,
	eventStream event.StreamWrite,
	from version.SequenceNumber,
	limit int,
) error {
	defer close(eventStream)

	rows, err := es.Conn.Query(
		ctx,
		`SELECT event_stream_id, global_sequence, "version", "type", event, metadata, recorded_at
		FROM events
		WHERE global_sequence > $1
		ORDER BY global_sequence
		LIMIT $2`,
		from, limit,
	)
	if err != nil {
		return fmt.Errorf("postgres.EventStore: failed to query events table, %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		evt, err := es.scanGlobalPersistedEvent(rows)
		if err != nil {
			return err
		}

		select {
		case eventStream <- evt:
		case <-ctx.Done():
			return fmt.Errorf("postgres.EventStore: context error, %w", ctx.Err())
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres.EventStore: failed while reading event rows, %w", err)
	}

	return nil
}

func (es EventStore) scanPersistedEvent(rows pgx.Rows, id event.StreamID) (event.Persisted, error) {
	var (
		evt         = event.Persisted{StreamID: id}
		eventType   string
		rawEvent    []byte
		rawMetadata json.RawMessage
	)

	if err := rows.Scan(
		&evt.SequenceNumber, &evt.Version,
		&eventType, &rawEvent, &rawMetadata, &evt.RecordedAt,
	); err != nil {
		return event.Persisted{}, fmt.Errorf("postgres.EventStore: failed to scan next row, %w", err)
	}

	return es.hydratePersistedEvent(evt, eventType, rawEvent, rawMetadata)
}

func (es EventStore) scanGlobalPersistedEvent(rows pgx.Rows) (event.Persisted, error) {
	var (
		evt         event.Persisted
		eventType   string
		rawEvent    []byte
		rawMetadata json.RawMessage
	)

	if err := rows.Scan(
		&evt.StreamID, &evt.SequenceNumber, &evt.Version,
		&eventType, &rawEvent, &rawMetadata, &evt.RecordedAt,
	); err != nil {
		return event.Persisted{}, fmt.Errorf("postgres.EventStore: failed to scan next row, %w", err)
	}

	return es.hydratePersistedEvent(evt, eventType, rawEvent, rawMetadata)
}

func (es EventStore) hydratePersistedEvent(
	evt event.Persisted,
	eventType string,
	rawEvent []byte,
	rawMetadata json.RawMessage,
) (event.Persisted, error) {
	msg, err := es.Serde.Deserialize(event.Raw{
		EventType: eventType,
		Data:      rawEvent,
	})
	if err != nil {
		return event.Persisted{}, fmt.Errorf("postgres.EventStore: failed to deserialize event, %w", err)
	}

	evt.Message = msg

	if rawMetadata != nil {
		if err := json.Unmarshal(rawMetadata, &evt.Metadata); err != nil {
			return event.Persisted{}, fmt.Errorf("postgres.EventStore: failed to deserialize metadata, %w", err)
		}
	}

	return evt, nil
}
