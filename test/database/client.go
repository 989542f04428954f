// Package database provides the container-backed Postgres harness for
// integration tests that need the ranked full-text search path.
package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dansasser/mcg-agent/pkg/database"
)

// NewTestClient creates a migrated Postgres client for a test.
// With CI_DATABASE_URL set it connects to an external service container;
// otherwise it spins up a testcontainer. Cleanup is registered on t.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		t.Log("Using testcontainers for PostgreSQL")
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("mcg_test"),
			postgres.WithUsername("mcg"),
			postgres.WithPassword("mcg"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	client, err := database.NewClientFromDSN(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
