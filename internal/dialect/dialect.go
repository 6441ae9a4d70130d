// Package dialect maps a database engine tag to the identifier quoting rules
// and the DDL/DML templates the loaders and the exporter need.
//
// Everything here is pure string formatting. Nothing in this package talks to
// a database; callers hand the rendered statements to a storage.Execer or
// storage.Querier.
package dialect

import (
	"errors"
	"fmt"
	"strings"
)

// Tag identifies a database engine.
type Tag string

const (
	Postgres Tag = "postgres"
	MySQL    Tag = "mysql"
	MariaDB  Tag = "mariadb"
	SQLite   Tag = "sqlite"
	MSSQL    Tag = "mssql"
)

// MaxVarcharWidth is the largest width rendered as VARCHAR(n). Anything wider
// becomes the engine's unbounded text type.
const MaxVarcharWidth = 255

// ErrUnsupported is matched (via errors.Is) by every *Error.
var ErrUnsupported = errors.New("unsupported database engine")

// Error reports an engine name that no dialect is registered for.
type Error struct {
	Name string
	Op   string
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("dialect: %s is not supported for %s", e.Name, e.Op)
	}
	return fmt.Sprintf("dialect: unsupported engine %q", e.Name)
}

// Is lets errors.Is(err, ErrUnsupported) match any *Error.
func (e *Error) Is(target error) bool { return target == ErrUnsupported }

// Parse maps user input (config value, CLI flag) to a Tag.
//
// Matching is case-insensitive and accepts the common driver aliases:
// "postgresql", "pg", "sqlite3", "sqlserver".
func Parse(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "mariadb":
		return MariaDB, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mssql", "sqlserver":
		return MSSQL, nil
	default:
		return "", &Error{Name: s}
	}
}

// Tags lists every supported tag in a stable order.
func Tags() []Tag {
	return []Tag{Postgres, MySQL, MariaDB, SQLite, MSSQL}
}

// Dialect renders engine-specific SQL.
//
// Table and column names passed in are expected to be sanitized already
// (see package sanitize); quoting still escapes the engine's quote character
// so a stray one cannot terminate the identifier.
type Dialect interface {
	Tag() Tag

	// Quote wraps a single identifier in the engine's quote characters.
	Quote(ident string) string

	// SupportsTemporaryTables reports whether CREATE TEMPORARY TABLE is usable
	// for session-scoped staging.
	SupportsTemporaryTables() bool

	// TransactionalDDL reports whether CREATE/DROP participate in a
	// transaction. MySQL and MariaDB commit implicitly on DDL.
	TransactionalDDL() bool

	// BackslashEscapes reports whether a backslash inside a single-quoted
	// literal is an escape character.
	BackslashEscapes() bool

	// LiteralPrefix is written immediately before the opening quote of each
	// value literal. SQL Server needs "N" so NVARCHAR columns keep characters
	// outside the database code page.
	LiteralPrefix() string

	DropTable(table string) string
	CreateTextTable(table string, columns []string) string
	CreateStagingTable(table string, columns []string) string
	CreateSizedTable(table string, columns []string, widths map[string]int) string
	InsertPrefix(table string, columns []string) string
	CopyTable(from, to string) string
	ListTables(schema string) string
	SelectPage(table string, limit, offset int) string
	ColumnType(width int) string

	// BulkLoadStatement renders a server-side bulk load of a delimited file
	// (LOAD DATA INFILE or COPY). Engines without one return an *Error.
	BulkLoadStatement(path, table string, sep rune, columns []string) (string, error)
}

// For returns the Dialect for tag.
func For(tag Tag) (Dialect, error) {
	switch tag {
	case Postgres:
		return postgres, nil
	case SQLite:
		return sqlite, nil
	case MySQL:
		return mysql, nil
	case MariaDB:
		return mariadb, nil
	case MSSQL:
		return mssql, nil
	default:
		return nil, &Error{Name: string(tag)}
	}
}

// Lookup is Parse followed by For.
func Lookup(name string) (Dialect, error) {
	tag, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return For(tag)
}
