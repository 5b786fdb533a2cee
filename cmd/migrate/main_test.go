package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialtab/adapters/postgres"
	"trialtab/internal"
	"trialtab/internal/testkit"
)

func TestRun_MigratesAndSnapshots(t *testing.T) {
	ctx := context.Background()
	logger := internal.NewLoggerWithWriter(internal.LogLevelError, io.Discard)
	dbPath := filepath.Join(t.TempDir(), "trialtab.db")

	require.NoError(t, run(ctx, logger, []string{"sqlite", dbPath, testkit.WriteStudies(t), "locations,other-events,nope"}))

	db, err := postgres.Open(ctx, "sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	snaps, err := postgres.NewSnapshotRepository(db).ListByStudy(ctx, testkit.StudyCF, 10)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestRun_SchemaOnly(t *testing.T) {
	logger := internal.NewLoggerWithWriter(internal.LogLevelError, io.Discard)
	dbPath := filepath.Join(t.TempDir(), "trialtab.db")
	require.NoError(t, run(context.Background(), logger, []string{"sqlite", dbPath}))
	// migrations are idempotent
	require.NoError(t, run(context.Background(), logger, []string{"sqlite", dbPath}))
}
