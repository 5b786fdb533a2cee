package postgres

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialtab/internal/errors"
	"trialtab/internal/migration"
	"trialtab/ports"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return db
}

func TestSnapshotRepository_SaveGet(t *testing.T) {
	repo := NewSnapshotRepository(openTestDB(t))
	ctx := context.Background()

	s := &ports.Snapshot{
		StudyID:  "NCT01000001",
		Preset:   "primary-outcomes",
		Columns:  []string{"Measure", "Time Frame"},
		Rows:     json.RawMessage(`[{"Measure":"FEV1","Time Frame":"Week 16"}]`),
		RowCount: 1,
	}
	require.NoError(t, repo.Save(ctx, s))
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "primary-outcomes", got.Preset)
	assert.Equal(t, []string{"Measure", "Time Frame"}, got.Columns)
	assert.JSONEq(t, string(s.Rows), string(got.Rows))
	assert.Equal(t, 1, got.RowCount)
	assert.WithinDuration(t, s.CreatedAt, got.CreatedAt, time.Second)

	_, err = repo.Get(ctx, uuid.New())
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestSnapshotRepository_ListAndDelete(t *testing.T) {
	repo := NewSnapshotRepository(openTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i, preset := range []string{"overview", "locations", "serious-events"} {
		s := &ports.Snapshot{
			StudyID:   "NCT01000001",
			Preset:    preset,
			Columns:   []string{"A"},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Save(ctx, s))
		ids = append(ids, s.ID)
	}
	require.NoError(t, repo.Save(ctx, &ports.Snapshot{StudyID: "NCT01000002", Preset: "overview", Columns: []string{"A"}}))

	list, err := repo.ListByStudy(ctx, "NCT01000001", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "serious-events", list[0].Preset)
	assert.Equal(t, "overview", list[2].Preset)
	assert.JSONEq(t, "[]", string(list[0].Rows))

	limited, err := repo.ListByStudy(ctx, "NCT01000001", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, repo.Delete(ctx, ids[0]))
	err = repo.Delete(ctx, ids[0])
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	list, err = repo.ListByStudy(ctx, "NCT01000001", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	none, err := repo.ListByStudy(ctx, "NCT404", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
