// Package sqldb adapts a database/sql handle to storage.Repository.
//
// The MySQL/MariaDB, SQLite and SQL Server backends all go through
// database/sql; they differ only in how the *sql.DB is opened. Each Session
// pins one *sql.Conn so temporary tables and transactions stay on the
// connection that created them.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fileflow/internal/dialect"
	"fileflow/internal/storage"
)

// DB implements storage.Repository over a *sql.DB.
type DB struct {
	db      *sql.DB
	dialect dialect.Dialect
	logger  *slog.Logger
}

// New wraps an already-open handle. The DB takes ownership of db and closes
// it on Close.
func New(db *sql.DB, d dialect.Dialect, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DB{db: db, dialect: d, logger: logger}
}

// Ping verifies connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Handle returns the underlying *sql.DB.
func (d *DB) Handle() *sql.DB { return d.db }

// Dialect implements storage.Repository.
func (d *DB) Dialect() dialect.Dialect { return d.dialect }

// Close implements storage.Repository.
func (d *DB) Close() {
	if d == nil || d.db == nil {
		return
	}
	d.logger.Debug("closing database connection", "engine", d.dialect.Tag())
	_ = d.db.Close()
}

// Session implements storage.Repository.
func (d *DB) Session(ctx context.Context) (storage.Session, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn     *sql.Conn
	released bool
}

func (s *session) Exec(ctx context.Context, query string) error {
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

func (s *session) Query(ctx context.Context, query string) (*storage.ResultSet, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()
	return ScanAll(rows)
}

func (s *session) InTx(ctx context.Context, fn func(storage.Execer) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(txExecer{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *session) Release() {
	if s.released {
		return
	}
	s.released = true
	_ = s.conn.Close()
}

type txExecer struct {
	tx *sql.Tx
}

func (t txExecer) Exec(ctx context.Context, query string) error {
	if _, err := t.tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// ScanAll materializes rows into a ResultSet. []byte values are copied into
// strings. The caller closes rows.
func ScanAll(rows *sql.Rows) (*storage.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	rs := &storage.ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rs.Rows = append(rs.Rows, storage.NormalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rs, nil
}

// compile-time checks
var (
	_ storage.Repository = (*DB)(nil)
	_ storage.Session    = (*session)(nil)
	_ storage.Execer     = txExecer{}
)
