package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a persisted extraction result
type Snapshot struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	StudyID   string          `json:"study_id" db:"study_id"`
	Preset    string          `json:"preset" db:"preset"`
	Columns   []string        `json:"columns" db:"-"`
	Rows      json.RawMessage `json:"rows" db:"-"`
	RowCount  int             `json:"row_count" db:"row_count"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// SnapshotRepository stores table snapshots
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Get(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	ListByStudy(ctx context.Context, studyID string, limit int) ([]*Snapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
