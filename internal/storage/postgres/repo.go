// Package postgres registers the Postgres backend (jackc/pgx/v5).
package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fileflow/internal/dialect"
	"fileflow/internal/storage"
)

func init() {
	storage.Register(string(dialect.Postgres), New)
}

// Repo implements storage.Repository on a pgx connection pool.
//
// Every statement is sent with the simple query protocol. Load statements
// are one-off multi-row INSERTs built from literals, so preparing and
// caching them would only grow the statement cache.
type Repo struct {
	pool    *pgxpool.Pool
	dialect dialect.Dialect
}

// New creates a new Postgres-backed Repo.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pcfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	d, _ := dialect.For(dialect.Postgres)
	return &Repo{pool: pool, dialect: d}, nil
}

// DSN returns cfg.DSN or a postgres:// URL built from the parts.
func DSN(cfg storage.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	return u.String()
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// Dialect implements storage.Repository.
func (r *Repo) Dialect() dialect.Dialect { return r.dialect }

// Session acquires one pooled connection.
func (r *Repo) Session(ctx context.Context) (storage.Session, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: acquire: %w", err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *pgxpool.Conn
}

func (s *session) Exec(ctx context.Context, query string) error {
	if _, err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

func (s *session) Query(ctx context.Context, query string) (*storage.ResultSet, error) {
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	rs := &storage.ResultSet{Columns: make([]string, len(fds))}
	for i, fd := range fds {
		rs.Columns[i] = fd.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rs.Rows = append(rs.Rows, storage.NormalizeRow(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rs, nil
}

// InTx runs fn in a transaction on this connection.
func (s *session) InTx(ctx context.Context, fn func(storage.Execer) error) error {
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		return fn(txExecer{tx: tx})
	})
}

func (s *session) Release() {
	if s.conn == nil {
		return
	}
	s.conn.Release()
	s.conn = nil
}

type txExecer struct {
	tx pgx.Tx
}

func (t txExecer) Exec(ctx context.Context, query string) error {
	if _, err := t.tx.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

var (
	_ storage.Repository = (*Repo)(nil)
	_ storage.Session    = (*session)(nil)
)
