package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"fileflow/internal/parser/csv"
	"fileflow/internal/probe"
	"fileflow/internal/sanitize"
	"fileflow/internal/storage"
)

// ExecQuerier is the capability CleanupStaging needs.
type ExecQuerier interface {
	storage.Execer
	storage.Querier
}

// CleanupStaging drops every base table in schema whose name ends in
// StagingSuffix and returns the dropped names. An empty schema means the
// dialect's default. Views are never listed. The match is by suffix only, so
// a user table named like "x_temporary" is dropped too.
//
// It is the maintenance path for staging tables orphaned by a failed
// adaptive load. Drop failures are collected and returned together; the
// remaining tables are still attempted.
func (l *Loader) CleanupStaging(ctx context.Context, s ExecQuerier, schema string) ([]string, error) {
	rs, err := s.Query(ctx, l.dialect.ListTables(schema))
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var (
		dropped []string
		errs    []error
	)
	for _, row := range rs.Rows {
		if len(row) == 0 {
			continue
		}
		name, _ := storage.Text(row[0])
		if !strings.HasSuffix(name, StagingSuffix) {
			continue
		}
		if err := s.Exec(ctx, l.dialect.DropTable(name)); err != nil {
			errs = append(errs, stmtErr(PhaseDrop, name, err))
			continue
		}
		l.logger.Info("staging table dropped", "table", name)
		dropped = append(dropped, name)
	}
	return dropped, errors.Join(errs...)
}

// Script renders a bulk-load script for path: DROP, a CREATE sized from a
// full scan of the file, and the dialect's server-side load statement
// (LOAD DATA INFILE or COPY). The file path in the script is absolute; the
// database server must be able to read it.
//
// Errors:
//   - probe errors for undetectable files.
//   - the dialect's *dialect.Error when it has no bulk-load statement.
func (l *Loader) Script(path, table string) (string, error) {
	sep, err := probe.DetectSeparatorInFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if table == "" {
		table = TableName(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	r, err := csv.Open(path, sep)
	if err != nil {
		return "", err
	}
	defer r.Close()

	columns, err := Columns(r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	widths, err := scanWidths(r, columns, l.dialect.BackslashEscapes())
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	load, err := l.dialect.BulkLoadStatement(abs, table, sep, columns)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(l.dialect.DropTable(table))
	sb.WriteString(";\n")
	sb.WriteString(l.dialect.CreateSizedTable(table, columns, widths.Floored(1)))
	sb.WriteString("\n")
	sb.WriteString(load)
	sb.WriteString("\n")
	return sb.String(), nil
}

// scanWidths reads r to the end and returns the width map. Malformed
// records are skipped.
func scanWidths(r RecordSource, columns []string, backslashEscapes bool) (WidthMap, error) {
	widths := NewWidthMap(columns)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return widths, nil
		}
		var re *csv.RecordError
		if errors.As(err, &re) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(columns) {
			continue
		}
		for i, f := range rec {
			widths.Observe(columns[i], sanitize.ValueFor(f, backslashEscapes))
		}
	}
}

// ExecScript executes a ';'-separated SQL script statement by statement and
// returns the number of statements executed. Semicolons inside single- or
// double-quoted text do not split.
func ExecScript(ctx context.Context, exec storage.Execer, script string) (int, error) {
	n := 0
	for _, stmt := range SplitStatements(script) {
		if err := exec.Exec(ctx, stmt); err != nil {
			return n, fmt.Errorf("statement %d: %w", n+1, err)
		}
		n++
	}
	return n, nil
}

// SplitStatements splits script on ';' outside quotes and drops empty
// statements.
func SplitStatements(script string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	emit := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, r := range script {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == ';':
			emit()
			continue
		}
		cur.WriteRune(r)
	}
	emit()
	return out
}
