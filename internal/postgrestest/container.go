// Package postgrestest provides helpers to run integration tests against
// a disposable PostgreSQL container.
package postgrestest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/get-eventually/logistics/postgres"
)

// Start runs a new PostgreSQL container with the latest migrations applied,
// returning a connection pool pointed at it.
//
// The test is skipped in short mode. Container and pool are torn down
// through t.Cleanup.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.SkipNow()
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(
		ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("main"),
		pgcontainer.WithUsername("postgres"),
		pgcontainer.WithPassword("notasecret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(pool.Close)

	return pool
}
