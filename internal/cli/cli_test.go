package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command tree in dir and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// workspace switches into a fresh directory holding a CSV file and returns
// the sqlite flags for a database file inside it.
func workspace(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("people.csv", []byte("Name,City\nO'Brien,Cork\nAnn,Galway\n"), 0o644))
	return []string{"--engine", "sqlite", "--dsn", filepath.Join(dir, "app.db")}
}

func TestCLI_LoadTablesExport(t *testing.T) {
	db := workspace(t)

	out, _, err := run(t, append([]string{"load", "people.csv", "--mode", "optimized"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 rows into people (optimized")

	out, _, err = run(t, append([]string{"tables"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "people")
	assert.Contains(t, out, "(1 tables)")

	out, _, err = run(t, append([]string{"export", "people", "--dir", "out", "--separator", "semicolon"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 out of 1")

	b, err := os.ReadFile(filepath.Join("out", "people_export.csv"))
	require.NoError(t, err)
	assert.Equal(t, "name;city\nO'Brien;Cork\nAnn;Galway\n", string(b))
}

func TestCLI_LoadWithTableOverride(t *testing.T) {
	db := workspace(t)

	out, _, err := run(t, append([]string{"load", "people.csv", "--table", "contacts"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 rows into contacts (fast")
}

func TestCLI_ExecAndCleanup(t *testing.T) {
	db := workspace(t)
	script := "CREATE TABLE orders (a TEXT);\nCREATE TABLE orders_temporary (a TEXT);\n" +
		"CREATE VIEW recent_temporary AS SELECT a FROM orders;\n"
	require.NoError(t, os.WriteFile("setup.sql", []byte(script), 0o644))

	out, _, err := run(t, append([]string{"exec", "setup.sql"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Executed 3 statements")

	out, _, err = run(t, append([]string{"cleanup"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "dropped orders_temporary")
	assert.Contains(t, out, "Dropped 1 staging tables")
	assert.NotContains(t, out, "recent_temporary")
}

func TestCLI_ScriptNeedsOnlyEngine(t *testing.T) {
	workspace(t)

	out, _, err := run(t, "script", "people.csv", "--engine", "mysql")
	require.NoError(t, err)
	assert.Contains(t, out, "DROP TABLE IF EXISTS `people`;")
	assert.Contains(t, out, "LOAD DATA INFILE")

	_, stderr, err := run(t, "script", "people.csv")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: engine is required")
}

func TestCLI_Probe(t *testing.T) {
	workspace(t)

	out, _, err := run(t, "probe", "people.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "separator: comma")
	assert.Contains(t, out, "sampled rows: 2")
	assert.Contains(t, out, "first line: comma, 2 columns (name, city)")
	assert.Contains(t, out, "VARCHAR(8)")
}

func TestCLI_ProbeFirstLineDiffers(t *testing.T) {
	workspace(t)
	require.NoError(t, os.WriteFile("quoted.csv", []byte("\"x,y\";z\n1;2\n"), 0o644))

	out, _, err := run(t, "probe", "quoted.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "separator: semicolon")
	assert.Contains(t, out, "first line: comma, 2 columns (x, y;z)")
}

func TestCLI_Errors(t *testing.T) {
	db := workspace(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing file", args: append([]string{"load", "nope.csv"}, db...), want: "nope.csv"},
		{name: "unknown engine", args: []string{"tables", "--engine", "oracle"}, want: "unsupported engine"},
		{name: "bad mode", args: append([]string{"load", "people.csv", "--mode", "turbo"}, db...), want: "turbo"},
		{name: "table with directory", args: append([]string{"load", ".", "--table", "x"}, db...), want: "--table"},
		{name: "bad separator", args: append([]string{"export", "--separator", "tab"}, db...), want: "separator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, stderr, "Error: ")
			assert.Contains(t, stderr, tt.want)
		})
	}
}
