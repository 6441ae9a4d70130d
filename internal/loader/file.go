package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"fileflow/internal/parser/csv"
	"fileflow/internal/probe"
	"fileflow/internal/sanitize"
	"fileflow/internal/storage"
)

// prepareWorkers bounds concurrent file inspection in LoadDirectory.
const prepareWorkers = 4

// TableName derives a table name from a file path: the file stem, sanitized
// like a column name.
//
//	"/in/Sales Report.2024.csv" -> "sales_report2024"
func TableName(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if name := sanitize.Column(stem); name != "" {
		return name
	}
	return "table"
}

// Columns reads the header of an opened file and returns the sanitized,
// de-duplicated column names.
func Columns(r *csv.Reader) ([]string, error) {
	header, err := r.Header()
	if err != nil {
		return nil, err
	}
	return sanitize.Dedupe(sanitize.FormatColumnNames(header)), nil
}

// LoadFile detects the separator of path, reads its header and loads it
// into table (TableName(path) when table is empty).
//
// Errors (all prefixed with path):
//   - probe.ErrInvalidFormat for an unknown extension or undetectable
//     separator; nothing is executed in that case.
//   - header read failures.
//   - anything Fast or Adaptive returns.
func (l *Loader) LoadFile(ctx context.Context, exec storage.Execer, path, table string, mode Mode) (Result, error) {
	sep, err := probe.DetectSeparatorInFile(path)
	if err != nil {
		return Result{Table: table, Mode: mode}, fmt.Errorf("%s: %w", path, err)
	}
	res, err := l.loadWith(ctx, exec, path, sep, table, mode)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

func (l *Loader) loadWith(ctx context.Context, exec storage.Execer, path string, sep rune, table string, mode Mode) (Result, error) {
	if table == "" {
		table = TableName(path)
	}
	r, err := csv.Open(path, sep)
	if err != nil {
		return Result{Table: table, Mode: mode}, err
	}
	defer r.Close()

	columns, err := Columns(r)
	if err != nil {
		return Result{Table: table, Mode: mode}, err
	}
	l.logger.Debug("file prepared", "path", path, "separator", probe.SeparatorName(sep), "columns", strings.Join(columns, ","))
	return l.Load(ctx, exec, mode, r, columns, table)
}

// FileResult is the outcome of one file of a directory load.
type FileResult struct {
	Path   string
	Result Result
	Err    error
}

// LoadDirectory loads every file of dir with a recognized extension into a
// table named after the file (see TableName). Subdirectories are ignored.
//
// Files are inspected concurrently; loads run one after another, each in its
// own Session under guard. A failing file does not stop the others: its
// error is kept in the FileResult and joined into the returned error.
func (l *Loader) LoadDirectory(ctx context.Context, guard *storage.Guard, dir string, mode Mode) ([]FileResult, error) {
	paths, err := listLoadable(dir)
	if err != nil {
		return nil, err
	}

	seps := make([]rune, len(paths))
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prepareWorkers)
	for i, p := range paths {
		results[i].Path = p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sep, err := probe.DetectSeparatorInFile(p)
			if err != nil {
				results[i].Err = err
				return nil
			}
			seps[i] = sep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	var errs []error
	for i := range results {
		fr := &results[i]
		if fr.Err == nil {
			fr.Err = guard.Do(ctx, func(s storage.Session) error {
				res, err := l.loadWith(ctx, s, fr.Path, seps[i], "", mode)
				fr.Result = res
				return err
			})
		}
		if fr.Err != nil {
			l.logger.Warn("file load failed", "path", fr.Path, "err", fr.Err)
			errs = append(errs, fmt.Errorf("%s: %w", fr.Path, fr.Err))
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, errors.Join(errs...)
}

func listLoadable(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !probe.HasSupportedExtension(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
