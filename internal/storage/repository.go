package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fileflow/internal/dialect"
)

// Config is the minimal configuration needed to open a Repository.
//
// When to use:
//   - Use Config when constructing a Repository via New.
//
// Edge cases:
//   - Kind must be non-empty and must name a registered backend. Aliases
//     accepted by dialect.Parse ("postgresql", "sqlite3", ...) are normalized.
//   - When DSN is empty the backend builds one from Host/Port/User/Password/
//     Database. SQLite uses Database as the file path.
//
// Errors:
//   - New returns an error if Kind is empty or unsupported.
type Config struct {
	Kind string
	DSN  string

	Host     string
	Port     int
	User     string
	Password string
	Database string

	// MaxConns caps the connection pool. Zero keeps the backend default.
	MaxConns int
}

// Execer runs one statement that returns no rows.
type Execer interface {
	Exec(ctx context.Context, query string) error
}

// ResultSet is one fully materialized query result. Values are driver
// values with []byte already converted to string.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Querier runs one statement and materializes its rows.
type Querier interface {
	Query(ctx context.Context, query string) (*ResultSet, error)
}

// TxRunner runs fn inside a transaction on the same connection. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Execer) error) error
}

// Session is one physical connection borrowed from a Repository.
//
// All statements issued through a Session run on the same connection, which
// is what makes session-scoped TEMPORARY staging tables visible to the copy
// step. A Session is not safe for concurrent use.
type Session interface {
	Execer
	Querier
	TxRunner

	// Release returns the connection to the pool. Calling Release more than
	// once is a no-op.
	Release()
}

// Repository owns a connection pool for one database.
type Repository interface {
	// Session borrows a connection. The caller must Release it.
	Session(ctx context.Context) (Session, error)

	// Dialect returns the SQL dialect of the underlying engine.
	Dialect() dialect.Dialect

	// Close releases any backend resources (connections, pools).
	//
	// Edge cases:
	//   - Callers should treat Close as "call once", at process shutdown.
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//   - The `kind` string becomes the lookup key used by New.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Registering twice is a wiring bug and
//     fails fast rather than picking one backend silently.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Concurrency:
//   - Safe for concurrent use with Register.
//
// Errors:
//   - Returns an error if cfg.Kind is empty, not a known engine, or has no
//     registered backend (import fileflow/internal/storage/all).
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}
	tag, err := dialect.Parse(cfg.Kind)
	if err != nil {
		return nil, err
	}
	cfg.Kind = string(tag)

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: no backend registered for kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
