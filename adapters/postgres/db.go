package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"trialtab/internal/errors"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the snapshot database. driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to "+driver, err)
	}
	if driver == "sqlite" {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
