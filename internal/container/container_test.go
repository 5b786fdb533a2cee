package container

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialtab/internal"
	"trialtab/internal/config"
	"trialtab/internal/errors"
	"trialtab/internal/testkit"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Studies:  config.StudiesConfig{Dir: testkit.WriteStudies(t)},
		Cache:    config.CacheConfig{Watch: true, RefreshSchedule: "*/5 * * * *"},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Export:   config.ExportConfig{SheetName: "Sheet1"},
	}
}

func quietLogger() *internal.Logger {
	return internal.NewLoggerWithWriter(internal.LogLevelError, io.Discard)
}

func TestNew_FileSourceWithoutDatabase(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, testConfig(t), quietLogger())
	require.NoError(t, err)

	assert.Nil(t, c.DB)
	assert.Nil(t, c.SnapshotRepo)
	assert.NotNil(t, c.Watcher)
	assert.NotNil(t, c.Scheduler)

	ids, err := c.Studies.ListStudies(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	runCtx, cancel := context.WithCancel(ctx)
	c.Start(runCtx)
	cancel()
	assert.NoError(t, c.Shutdown(ctx))
}

func TestNew_WithSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Database.URL = filepath.Join(t.TempDir(), "snapshots.db")

	c, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	require.NotNil(t, c.SnapshotRepo)
	snap, err := c.Studies.SaveSnapshot(ctx, testkit.StudyCF, "locations")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.RowCount)
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.RefreshSchedule = "every tuesday"

	_, err := New(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, quietLogger())
	assert.Error(t, err)
}
