// Package exporter writes database tables back out as delimited files.
//
// Tables are read page by page (SELECT ... LIMIT n OFFSET o) so memory is
// bounded by one page; each page is written before the next is fetched.
package exporter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fileflow/internal/dialect"
	"fileflow/internal/metrics"
	"fileflow/internal/storage"
)

// PageSize is the number of rows fetched per SELECT.
const PageSize = 5000

// FileSuffix is appended to the table name for the export file.
const FileSuffix = "_export.csv"

// Separator is the output field separator.
type Separator string

const (
	Comma     Separator = "comma"
	Semicolon Separator = "semicolon"
	Pipe      Separator = "pipe"
	Space     Separator = "space"
)

// Separators lists the supported separators.
func Separators() []Separator { return []Separator{Comma, Semicolon, Pipe, Space} }

// ParseSeparator accepts a separator name or the character itself.
func ParseSeparator(s string) (Separator, error) {
	switch strings.ToLower(s) {
	case "comma", ",", "":
		return Comma, nil
	case "semicolon", ";":
		return Semicolon, nil
	case "pipe", "|":
		return Pipe, nil
	case "space", " ":
		return Space, nil
	}
	return "", fmt.Errorf("exporter: unknown separator %q (want comma, semicolon, pipe or space)", s)
}

// Rune returns the separator character. An unknown value yields ','.
func (s Separator) Rune() rune {
	switch s {
	case Semicolon:
		return ';'
	case Pipe:
		return '|'
	case Space:
		return ' '
	default:
		return ','
	}
}

// Options tunes an Exporter. The zero value exports comma-separated pages of
// PageSize rows.
type Options struct {
	Separator Separator
	PageSize  int
	Logger    *slog.Logger
}

// Result summarizes one table export.
type Result struct {
	Table    string
	Path     string
	Rows     int64
	Pages    int
	Duration time.Duration
}

// Exporter exports tables of one dialect.
type Exporter struct {
	dialect  dialect.Dialect
	sep      Separator
	pageSize int
	logger   *slog.Logger
}

// New returns an Exporter rendering queries for d.
func New(d dialect.Dialect, opts Options) *Exporter {
	if opts.PageSize <= 0 {
		opts.PageSize = PageSize
	}
	if opts.Separator == "" {
		opts.Separator = Comma
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{dialect: d, sep: opts.Separator, pageSize: opts.PageSize, logger: logger}
}

// Export writes table to path.
//
// The header row comes from the column names of the first non-empty page,
// so an empty table produces an empty file. NULL and values without a text
// form are written as empty fields. The loop stops at the first empty page.
//
// On error the partial file is removed.
func (e *Exporter) Export(ctx context.Context, q storage.Querier, table, path string) (res Result, err error) {
	res = Result{Table: table, Path: path}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordStep("export", start, err)
	}()

	f, err := os.Create(path)
	if err != nil {
		return res, fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	w := csv.NewWriter(f)
	w.Comma = e.sep.Rune()

	header := false
	for offset := 0; ; offset += e.pageSize {
		rs, err := q.Query(ctx, e.dialect.SelectPage(table, e.pageSize, offset))
		if err != nil {
			return res, fmt.Errorf("failed to execute query: %w", err)
		}
		res.Pages++
		if len(rs.Rows) == 0 {
			break
		}
		if !header {
			if err := w.Write(rs.Columns); err != nil {
				return res, err
			}
			header = true
		}
		record := make([]string, len(rs.Columns))
		for _, row := range rs.Rows {
			for i := range record {
				record[i] = ""
				if i < len(row) {
					record[i], _ = storage.Text(row[i])
				}
			}
			if err := w.Write(record); err != nil {
				return res, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return res, fmt.Errorf("write export file: %w", err)
		}
		res.Rows += int64(len(rs.Rows))
		metrics.RecordRows("exported", len(rs.Rows))
		e.logger.Debug("page exported", "table", table, "offset", offset, "rows", len(rs.Rows))
	}

	e.logger.Info("table exported", "table", table, "path", path, "rows", res.Rows, "pages", res.Pages)
	return res, nil
}

// Summary is the outcome of ExportTables.
type Summary struct {
	Results []Result
	// Failed maps a table to its export error.
	Failed map[string]error
	Total  int
}

// Exported returns the number of tables written successfully.
func (s Summary) Exported() int { return len(s.Results) }

func (s Summary) String() string {
	return fmt.Sprintf("Exported %d out of %d", s.Exported(), s.Total)
}

// ExportTables exports each table to <dir>/<table>_export.csv. A failing
// table does not stop the others; the failures are joined into the returned
// error.
func (e *Exporter) ExportTables(ctx context.Context, q storage.Querier, tables []string, dir string) (Summary, error) {
	sum := Summary{Total: len(tables), Failed: map[string]error{}}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sum, fmt.Errorf("create export dir: %w", err)
	}

	var errs []error
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := e.Export(ctx, q, table, filepath.Join(dir, table+FileSuffix))
		if err != nil {
			e.logger.Warn("table export failed", "table", table, "err", err)
			sum.Failed[table] = err
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
			continue
		}
		sum.Results = append(sum.Results, res)
	}
	return sum, errors.Join(errs...)
}

// ListTables returns the table names of schema ("" for the dialect
// default).
func (e *Exporter) ListTables(ctx context.Context, q storage.Querier, schema string) ([]string, error) {
	return ListTables(ctx, q, e.dialect, schema)
}

// ListTables runs d's table-listing query and returns the first column of
// every row.
func ListTables(ctx context.Context, q storage.Querier, d dialect.Dialect, schema string) ([]string, error) {
	rs, err := q.Query(ctx, d.ListTables(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	out := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if len(row) == 0 {
			continue
		}
		if name, ok := storage.Text(row[0]); ok && name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}
