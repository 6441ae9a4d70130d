package dialect

import (
	"errors"
	"strings"
	"testing"
)

func mustFor(t *testing.T, tag Tag) Dialect {
	t.Helper()
	d, err := For(tag)
	if err != nil {
		t.Fatalf("For(%q) error: %v", tag, err)
	}
	return d
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Tag
	}{
		{"postgres", Postgres},
		{"PostgreSQL", Postgres},
		{" pg ", Postgres},
		{"mysql", MySQL},
		{"MariaDB", MariaDB},
		{"sqlite3", SQLite},
		{"sqlserver", MSSQL},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	t.Parallel()

	_, err := Parse("oracle")
	if err == nil {
		t.Fatalf("Parse(oracle) expected error")
	}
	var de *Error
	if !errors.As(err, &de) || de.Name != "oracle" {
		t.Fatalf("expected *Error{Name: oracle}, got %T %v", err, err)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("errors.Is(err, ErrUnsupported) = false")
	}

	if _, err := For(Tag("db2")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("For(db2) err = %v, want ErrUnsupported", err)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag  Tag
		in   string
		want string
	}{
		{Postgres, "t", `"t"`},
		{SQLite, `a"b`, `"a""b"`},
		{MySQL, "t", "`t`"},
		{MariaDB, "a`b", "`a``b`"},
		{MSSQL, "a]b", "[a]]b]"},
	}
	for _, tt := range tests {
		if got := mustFor(t, tt.tag).Quote(tt.in); got != tt.want {
			t.Fatalf("%s Quote(%q) = %q, want %q", tt.tag, tt.in, got, tt.want)
		}
	}
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	cols := []string{"c1", "c2"}
	tests := []struct {
		name string
		tag  Tag
		got  func(d Dialect) string
		want string
	}{
		{"pg drop", Postgres, func(d Dialect) string { return d.DropTable("t") }, `DROP TABLE IF EXISTS "t"`},
		{"mysql drop", MySQL, func(d Dialect) string { return d.DropTable("t") }, "DROP TABLE IF EXISTS `t`"},
		{"pg create text", Postgres, func(d Dialect) string { return d.CreateTextTable("t", cols) }, `CREATE TABLE "t" (c1 TEXT, c2 TEXT)`},
		{"sqlite create text", SQLite, func(d Dialect) string { return d.CreateTextTable("t", cols) }, `CREATE TABLE "t" (c1 TEXT, c2 TEXT)`},
		{"mysql create text", MySQL, func(d Dialect) string { return d.CreateTextTable("t", cols) }, "CREATE TABLE `t` (`c1` TEXT, `c2` TEXT)"},
		{"mariadb create text", MariaDB, func(d Dialect) string { return d.CreateTextTable("t", cols) }, "CREATE TABLE `t` (`c1` TEXT, `c2` TEXT)"},
		{"pg staging", Postgres, func(d Dialect) string { return d.CreateStagingTable("t", cols) }, `CREATE TEMPORARY TABLE "t" (c1 TEXT, c2 TEXT)`},
		{"mssql create text", MSSQL, func(d Dialect) string { return d.CreateTextTable("t", cols) }, "CREATE TABLE [t] ([c1] NVARCHAR(MAX), [c2] NVARCHAR(MAX))"},
		{"mssql staging falls back", MSSQL, func(d Dialect) string { return d.CreateStagingTable("t", cols) }, "CREATE TABLE [t] ([c1] NVARCHAR(MAX), [c2] NVARCHAR(MAX))"},
		{"pg insert prefix", Postgres, func(d Dialect) string { return d.InsertPrefix("t", cols) }, `INSERT INTO "t" ("c1","c2") VALUES `},
		{"mysql insert prefix", MySQL, func(d Dialect) string { return d.InsertPrefix("t", cols) }, "INSERT INTO `t` (`c1`,`c2`) VALUES "},
		{"pg copy", Postgres, func(d Dialect) string { return d.CopyTable("temp", "final") }, `INSERT INTO "final" SELECT * FROM "temp"`},
		{"mysql copy", MySQL, func(d Dialect) string { return d.CopyTable("temp", "final") }, "INSERT INTO `final` SELECT * FROM `temp`"},
		{"pg list", Postgres, func(d Dialect) string { return d.ListTables("") }, "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = 'public';"},
		{"mysql list", MySQL, func(d Dialect) string { return d.ListTables("shop") }, "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = 'shop';"},
		{"mysql list current db", MySQL, func(d Dialect) string { return d.ListTables("") }, "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = DATABASE();"},
		{"sqlite list", SQLite, func(d Dialect) string { return d.ListTables("ignored") }, "SELECT name FROM sqlite_master WHERE type='table';"},
		{"pg page", Postgres, func(d Dialect) string { return d.SelectPage("t", 5000, 10000) }, `SELECT * FROM "t" LIMIT 5000 OFFSET 10000`},
		{"mssql page", MSSQL, func(d Dialect) string { return d.SelectPage("t", 5000, 0) }, "SELECT * FROM [t] ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 5000 ROWS ONLY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got(mustFor(t, tt.tag)); got != tt.want {
				t.Fatalf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestCreateTextTable_QuotesOnlyWhenNeeded(t *testing.T) {
	t.Parallel()

	cols := []string{"ok", "order", "total-amount", "1st", "y;z", "col_2"}
	want := `CREATE TABLE "t" (ok TEXT, "order" TEXT, "total-amount" TEXT, "1st" TEXT, "y;z" TEXT, col_2 TEXT)`
	for _, tag := range []Tag{Postgres, SQLite} {
		if got := mustFor(t, tag).CreateTextTable("t", cols); got != want {
			t.Fatalf("%s got  %q\nwant %q", tag, got, want)
		}
	}
}

func TestColumnType_Threshold(t *testing.T) {
	t.Parallel()

	d := mustFor(t, Postgres)
	tests := []struct {
		width int
		want  string
	}{
		{0, "VARCHAR(0)"},
		{1, "VARCHAR(1)"},
		{255, "VARCHAR(255)"},
		{256, "TEXT"},
		{100000, "TEXT"},
	}
	for _, tt := range tests {
		if got := d.ColumnType(tt.width); got != tt.want {
			t.Fatalf("ColumnType(%d) = %q, want %q", tt.width, got, tt.want)
		}
	}

	if got := mustFor(t, MSSQL).ColumnType(256); got != "NVARCHAR(MAX)" {
		t.Fatalf("mssql ColumnType(256) = %q", got)
	}
}

func TestCreateSizedTable(t *testing.T) {
	t.Parallel()

	widths := map[string]int{"h1": 10, "h2": 300}
	cols := []string{"h1", "h2"}

	got := mustFor(t, Postgres).CreateSizedTable("t", cols, widths)
	want := `CREATE TABLE "t" ("h1" VARCHAR(10), "h2" TEXT);`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got = mustFor(t, MySQL).CreateSizedTable("t", cols, widths)
	want = "CREATE TABLE `t` (`h1` VARCHAR(10), `h2` TEXT);"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag       Tag
		temp      bool
		txDDL     bool
		backslash bool
		literal   string
	}{
		{Postgres, true, true, false, ""},
		{SQLite, true, true, false, ""},
		{MySQL, true, false, true, ""},
		{MariaDB, true, false, true, ""},
		{MSSQL, false, true, false, "N"},
	}
	for _, tt := range tests {
		d := mustFor(t, tt.tag)
		if d.Tag() != tt.tag {
			t.Fatalf("Tag() = %q, want %q", d.Tag(), tt.tag)
		}
		if d.SupportsTemporaryTables() != tt.temp || d.TransactionalDDL() != tt.txDDL || d.BackslashEscapes() != tt.backslash {
			t.Fatalf("%s capabilities = (%v,%v,%v), want (%v,%v,%v)", tt.tag,
				d.SupportsTemporaryTables(), d.TransactionalDDL(), d.BackslashEscapes(),
				tt.temp, tt.txDDL, tt.backslash)
		}
		if got := d.LiteralPrefix(); got != tt.literal {
			t.Fatalf("%s LiteralPrefix() = %q, want %q", tt.tag, got, tt.literal)
		}
	}
}

func TestBulkLoadStatement(t *testing.T) {
	t.Parallel()

	cols := []string{"a", "b"}

	got, err := mustFor(t, MySQL).BulkLoadStatement("/tmp/x.csv", "t", ';', cols)
	if err != nil {
		t.Fatalf("mysql: %v", err)
	}
	if !strings.HasPrefix(got, "LOAD DATA INFILE '/tmp/x.csv'\nINTO TABLE `t`") ||
		!strings.Contains(got, "FIELDS TERMINATED BY ';'") ||
		!strings.HasSuffix(got, "IGNORE 1 ROWS (`a`, `b`);") {
		t.Fatalf("unexpected mysql statement:\n%s", got)
	}

	got, err = mustFor(t, Postgres).BulkLoadStatement("/tmp/o'k.csv", "t", ',', cols)
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	want := "COPY \"t\" (\"a\", \"b\")\nFROM '/tmp/o''k.csv'\nWITH (FORMAT csv, HEADER true, DELIMITER ',', QUOTE '\"');"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}

	for _, tag := range []Tag{SQLite, MSSQL} {
		if _, err := mustFor(t, tag).BulkLoadStatement("x.csv", "t", ',', cols); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%s bulk load err = %v, want ErrUnsupported", tag, err)
		}
	}
}
