package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"trialtab/internal/errors"
	"trialtab/ports"
)

// SnapshotRepositoryImpl implements SnapshotRepository with sqlx. Queries use
// ? placeholders rebound for the connected driver.
type SnapshotRepositoryImpl struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB) ports.SnapshotRepository {
	return &SnapshotRepositoryImpl{db: db}
}

type snapshotRow struct {
	ID        string    `db:"id"`
	StudyID   string    `db:"study_id"`
	Preset    string    `db:"preset"`
	Columns   string    `db:"column_names"`
	Payload   string    `db:"payload"`
	RowCount  int       `db:"row_count"`
	CreatedAt time.Time `db:"created_at"`
}

func (r snapshotRow) toSnapshot() (*ports.Snapshot, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	s := &ports.Snapshot{
		ID:        id,
		StudyID:   r.StudyID,
		Preset:    r.Preset,
		Rows:      json.RawMessage(r.Payload),
		RowCount:  r.RowCount,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Columns), &s.Columns); err != nil {
		return nil, err
	}
	return s, nil
}

// Save inserts a snapshot, assigning its id and creation time when unset
func (r *SnapshotRepositoryImpl) Save(ctx context.Context, s *ports.Snapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	if s.Rows == nil {
		s.Rows = json.RawMessage("[]")
	}
	columns, err := json.Marshal(s.Columns)
	if err != nil {
		return errors.DatabaseError("failed to encode snapshot columns", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO table_snapshots (id, study_id, preset, column_names, payload, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), s.ID.String(), s.StudyID, s.Preset, string(columns), string(s.Rows), s.RowCount, s.CreatedAt)
	if err != nil {
		return errors.DatabaseError("failed to save snapshot", err)
	}
	return nil
}

// Get returns one snapshot by id
func (r *SnapshotRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*ports.Snapshot, error) {
	var row snapshotRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, study_id, preset, column_names, payload, row_count, created_at
		FROM table_snapshots
		WHERE id = ?
	`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("snapshot " + id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get snapshot", err)
	}
	return row.toSnapshot()
}

// ListByStudy returns a study's snapshots, newest first, optionally limited
func (r *SnapshotRepositoryImpl) ListByStudy(ctx context.Context, studyID string, limit int) ([]*ports.Snapshot, error) {
	query := `
		SELECT id, study_id, preset, column_names, payload, row_count, created_at
		FROM table_snapshots
		WHERE study_id = ?
		ORDER BY created_at DESC, id
	`
	args := []interface{}{studyID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list snapshots", err)
	}

	snapshots := make([]*ports.Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSnapshot()
		if err != nil {
			return nil, errors.DatabaseError("corrupt snapshot row "+row.ID, err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

// Delete removes a snapshot
func (r *SnapshotRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM table_snapshots WHERE id = ?`), id.String())
	if err != nil {
		return errors.DatabaseError("failed to delete snapshot", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("snapshot " + id.String())
	}
	return nil
}
