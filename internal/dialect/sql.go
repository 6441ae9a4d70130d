package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// descriptor is the single Dialect implementation; engines differ only in
// the field values below.
type descriptor struct {
	tag Tag

	quoteOpen  string
	quoteClose string

	varcharType string
	textType    string

	// quoteTextColumns quotes column names in the all-text CREATE TABLE.
	// Postgres and SQLite leave plain identifiers bare there.
	quoteTextColumns bool

	// literalPrefix is written before every value literal ("N" for
	// NVARCHAR targets).
	literalPrefix string

	tempTables bool
	txDDL      bool
	backslash  bool

	// defaultSchema is used by ListTables when the caller passes "".
	defaultSchema string

	listTables func(d *descriptor, schema string) string
	selectPage func(d *descriptor, table string, limit, offset int) string
	bulkLoad   func(d *descriptor, path, table string, sep rune, columns []string) (string, error)
}

var (
	postgres = &descriptor{
		tag:           Postgres,
		quoteOpen:     `"`,
		quoteClose:    `"`,
		varcharType:   "VARCHAR",
		textType:      "TEXT",
		tempTables:    true,
		txDDL:         true,
		defaultSchema: "public",
		listTables:    informationSchemaTables,
		selectPage:    limitOffsetPage,
		bulkLoad:      copyFrom,
	}
	sqlite = &descriptor{
		tag:         SQLite,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		varcharType: "VARCHAR",
		textType:    "TEXT",
		tempTables:  true,
		txDDL:       true,
		listTables: func(*descriptor, string) string {
			return "SELECT name FROM sqlite_master WHERE type='table';"
		},
		selectPage: limitOffsetPage,
		bulkLoad:   unsupportedBulkLoad,
	}
	mysql = &descriptor{
		tag:              MySQL,
		quoteOpen:        "`",
		quoteClose:       "`",
		varcharType:      "VARCHAR",
		textType:         "TEXT",
		quoteTextColumns: true,
		tempTables:       true,
		backslash:        true,
		listTables:       informationSchemaTables,
		selectPage:       limitOffsetPage,
		bulkLoad:         loadDataInfile,
	}
	mariadb = func() *descriptor {
		d := *mysql
		d.tag = MariaDB
		return &d
	}()
	mssql = &descriptor{
		tag:              MSSQL,
		quoteOpen:        "[",
		quoteClose:       "]",
		varcharType:      "NVARCHAR",
		textType:         "NVARCHAR(MAX)",
		quoteTextColumns: true,
		literalPrefix:    "N",
		txDDL:            true,
		defaultSchema:    "dbo",
		listTables: func(d *descriptor, schema string) string {
			if schema == "" {
				schema = d.defaultSchema
			}
			return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = " + literal(schema) + ";"
		},
		selectPage: func(d *descriptor, table string, limit, offset int) string {
			return "SELECT * FROM " + d.Quote(table) +
				" ORDER BY (SELECT NULL) OFFSET " + strconv.Itoa(offset) +
				" ROWS FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
		},
		bulkLoad: unsupportedBulkLoad,
	}
)

func (d *descriptor) Tag() Tag                      { return d.tag }
func (d *descriptor) SupportsTemporaryTables() bool { return d.tempTables }
func (d *descriptor) TransactionalDDL() bool        { return d.txDDL }
func (d *descriptor) BackslashEscapes() bool        { return d.backslash }
func (d *descriptor) LiteralPrefix() string         { return d.literalPrefix }

// Quote returns the quoted identifier, doubling any embedded closing quote.
func (d *descriptor) Quote(ident string) string {
	return d.quoteOpen + strings.ReplaceAll(ident, d.quoteClose, d.quoteClose+d.quoteClose) + d.quoteClose
}

func (d *descriptor) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table)
}

func (d *descriptor) CreateTextTable(table string, columns []string) string {
	return d.createText("CREATE TABLE ", table, columns)
}

// CreateStagingTable renders a session-scoped staging table where the engine
// has one, and a plain text table otherwise.
func (d *descriptor) CreateStagingTable(table string, columns []string) string {
	if !d.tempTables {
		return d.CreateTextTable(table, columns)
	}
	return d.createText("CREATE TEMPORARY TABLE ", table, columns)
}

func (d *descriptor) createText(verb, table string, columns []string) string {
	var b strings.Builder
	b.WriteString(verb)
	b.WriteString(d.Quote(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.textColumn(c))
		b.WriteString(" ")
		b.WriteString(d.textType)
	}
	b.WriteString(")")
	return b.String()
}

func (d *descriptor) textColumn(c string) string {
	if d.quoteTextColumns || !bareIdent(c) {
		return d.Quote(c)
	}
	return c
}

// reservedWords are keywords likely to show up as CSV headers that neither
// Postgres nor SQLite accept as a bare column name.
var reservedWords = map[string]bool{
	"all": true, "and": true, "as": true, "asc": true, "by": true, "case": true,
	"check": true, "column": true, "constraint": true, "create": true, "default": true,
	"desc": true, "distinct": true, "else": true, "end": true, "from": true,
	"group": true, "having": true, "in": true, "index": true, "is": true,
	"limit": true, "not": true, "null": true, "offset": true, "on": true, "or": true,
	"order": true, "primary": true, "references": true, "select": true, "table": true,
	"then": true, "to": true, "union": true, "unique": true, "user": true,
	"when": true, "where": true,
}

// bareIdent reports whether c is a lower-case identifier that needs no quotes.
func bareIdent(c string) bool {
	if c == "" || reservedWords[c] {
		return false
	}
	for i, r := range c {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// CreateSizedTable renders the final table of an adaptive load. Columns
// missing from widths are treated as width 0.
func (d *descriptor) CreateSizedTable(table string, columns []string, widths map[string]int) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.Quote(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Quote(c))
		b.WriteString(" ")
		b.WriteString(d.ColumnType(widths[c]))
	}
	b.WriteString(");")
	return b.String()
}

// ColumnType maps a width to VARCHAR(width) up to MaxVarcharWidth, and to the
// unbounded text type above it.
func (d *descriptor) ColumnType(width int) string {
	if width > MaxVarcharWidth {
		return d.textType
	}
	return d.varcharType + "(" + strconv.Itoa(width) + ")"
}

// InsertPrefix renders `INSERT INTO t (c1,c2) VALUES `, trailing space
// included, ready for the value tuples.
func (d *descriptor) InsertPrefix(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Quote(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(d.Quote(c))
	}
	b.WriteString(") VALUES ")
	return b.String()
}

func (d *descriptor) CopyTable(from, to string) string {
	return "INSERT INTO " + d.Quote(to) + " SELECT * FROM " + d.Quote(from)
}

func (d *descriptor) ListTables(schema string) string {
	return d.listTables(d, schema)
}

func (d *descriptor) SelectPage(table string, limit, offset int) string {
	return d.selectPage(d, table, limit, offset)
}

func (d *descriptor) BulkLoadStatement(path, table string, sep rune, columns []string) (string, error) {
	return d.bulkLoad(d, path, table, sep, columns)
}

func (d *descriptor) quotedList(columns []string) string {
	q := make([]string, len(columns))
	for i, c := range columns {
		q[i] = d.Quote(c)
	}
	return strings.Join(q, ", ")
}

// informationSchemaTables is shared by Postgres and MySQL/MariaDB. Views are
// excluded. MySQL with no schema lists the connection's current database.
func informationSchemaTables(d *descriptor, schema string) string {
	if schema == "" {
		schema = d.defaultSchema
	}
	target := "DATABASE()"
	if schema != "" {
		target = literal(schema)
	}
	return "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = " + target + ";"
}

func limitOffsetPage(d *descriptor, table string, limit, offset int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", d.Quote(table), limit, offset)
}

func loadDataInfile(d *descriptor, path, table string, sep rune, columns []string) (string, error) {
	var b strings.Builder
	b.WriteString("LOAD DATA INFILE ")
	b.WriteString(literal(path))
	b.WriteString("\nINTO TABLE ")
	b.WriteString(d.Quote(table))
	b.WriteString("\nCHARACTER SET utf8\nFIELDS TERMINATED BY ")
	b.WriteString(literal(string(sep)))
	b.WriteString("\nENCLOSED BY '\"'\nLINES TERMINATED BY '\\n'\nIGNORE 1 ROWS (")
	b.WriteString(d.quotedList(columns))
	b.WriteString(");")
	return b.String(), nil
}

func copyFrom(d *descriptor, path, table string, sep rune, columns []string) (string, error) {
	var b strings.Builder
	b.WriteString("COPY ")
	b.WriteString(d.Quote(table))
	b.WriteString(" (")
	b.WriteString(d.quotedList(columns))
	b.WriteString(")\nFROM ")
	b.WriteString(literal(path))
	b.WriteString("\nWITH (FORMAT csv, HEADER true, DELIMITER ")
	b.WriteString(literal(string(sep)))
	b.WriteString(", QUOTE '\"');")
	return b.String(), nil
}

func unsupportedBulkLoad(d *descriptor, _, _ string, _ rune, _ []string) (string, error) {
	return "", &Error{Name: string(d.tag), Op: "bulk load"}
}

// literal renders s as a single-quoted SQL string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
