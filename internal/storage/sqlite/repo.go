// Package sqlite registers the SQLite backend (modernc.org/sqlite, pure Go).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"fileflow/internal/dialect"
	"fileflow/internal/storage"
	"fileflow/internal/storage/sqldb"
)

func init() {
	storage.Register(string(dialect.SQLite), New)
}

// New opens a SQLite database.
//
// SQLite allows one writer at a time, and every connection to ":memory:" is
// a separate database, so the pool is pinned to a single connection that is
// never recycled.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	dsn := DSN(cfg)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: missing dsn or database path")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	d, _ := dialect.For(dialect.SQLite)
	return sqldb.New(db, d, nil), nil
}

// DSN returns cfg.DSN, or cfg.Database used as a file path.
func DSN(cfg storage.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return cfg.Database
}
