// Package loader bulk-loads delimited records into a database table.
//
// Two strategies share one streaming core:
//
//   - Fast: drop, create with unbounded text columns, batch-insert.
//   - Adaptive ("optimized"): stage rows into <table>_temporary while tracking
//     the widest sanitized value per column, then create a right-sized final
//     table and copy the staged rows across server-side.
//
// Statements are issued one at a time on the Execer handed in by the caller;
// the loader never stores it. A load is not atomic: batches that succeeded
// before a failure stay in the table. Orphaned staging tables are removed by
// CleanupStaging.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fileflow/internal/dialect"
	"fileflow/internal/metrics"
	"fileflow/internal/parser/csv"
	"fileflow/internal/storage"
)

const (
	// FastBatchSize is the number of rows per INSERT on the fast path.
	FastBatchSize = 5000
	// AdaptiveBatchSize is the number of rows per INSERT into the staging
	// table on the adaptive path.
	AdaptiveBatchSize = 4000
	// StagingSuffix is appended to the final table name for the staging
	// table.
	StagingSuffix = "_temporary"
)

// Mode selects the load strategy.
type Mode string

const (
	ModeFast      Mode = "fast"
	ModeOptimized Mode = "optimized"
)

// ParseMode parses "fast" or "optimized" ("adaptive" is accepted as an
// alias).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast", "":
		return ModeFast, nil
	case "optimized", "optimised", "adaptive":
		return ModeOptimized, nil
	default:
		return "", fmt.Errorf("loader: unknown mode %q (want fast or optimized)", s)
	}
}

// ParseErrorPolicy decides what happens to a malformed record.
type ParseErrorPolicy int

const (
	// SkipRecord drops the record, counts it in Result.Skipped and continues.
	SkipRecord ParseErrorPolicy = iota
	// FailLoad aborts the load with a *RecordParseError.
	FailLoad
)

// RecordSource yields data records. Next returns io.EOF at the end of input.
// A *csv.RecordError is treated as a malformed record; any other error
// aborts the load.
type RecordSource interface {
	Next() ([]string, error)
}

// Options tunes a Loader. The zero value is usable.
type Options struct {
	// FastBatchSize overrides FastBatchSize when > 0.
	FastBatchSize int
	// AdaptiveBatchSize overrides AdaptiveBatchSize when > 0.
	AdaptiveBatchSize int

	OnParseError ParseErrorPolicy

	// SessionStaging creates the staging table with the dialect's TEMPORARY
	// form when it has one. The table then lives only as long as the
	// session, so no orphan survives a crash, but it is invisible to other
	// connections.
	SessionStaging bool

	Logger *slog.Logger
}

// Result summarizes one load.
type Result struct {
	Table    string
	Mode     Mode
	Rows     int64
	Skipped  int64
	Batches  int
	Duration time.Duration
}

// Loader runs loads for one dialect.
type Loader struct {
	dialect dialect.Dialect
	opts    Options
	logger  *slog.Logger
}

// New returns a Loader that renders SQL for d.
func New(d dialect.Dialect, opts Options) *Loader {
	if opts.FastBatchSize <= 0 {
		opts.FastBatchSize = FastBatchSize
	}
	if opts.AdaptiveBatchSize <= 0 {
		opts.AdaptiveBatchSize = AdaptiveBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{dialect: d, opts: opts, logger: logger}
}

// Dialect returns the loader's dialect.
func (l *Loader) Dialect() dialect.Dialect { return l.dialect }

// Load dispatches to Fast or Adaptive.
func (l *Loader) Load(ctx context.Context, exec storage.Execer, mode Mode, src RecordSource, columns []string, table string) (Result, error) {
	switch mode {
	case ModeFast:
		return l.Fast(ctx, exec, src, columns, table)
	case ModeOptimized:
		return l.Adaptive(ctx, exec, src, columns, table)
	default:
		return Result{}, fmt.Errorf("loader: unknown mode %q", mode)
	}
}

// Fast loads src into table with unbounded text columns.
//
// Steps: drop table if exists, create it, insert in batches of
// Options.FastBatchSize, flush the tail batch. Any statement failure is a
// *StatementError naming the phase.
func (l *Loader) Fast(ctx context.Context, exec storage.Execer, src RecordSource, columns []string, table string) (Result, error) {
	res := Result{Table: table, Mode: ModeFast}
	if len(columns) == 0 {
		return res, ErrNoColumns
	}
	start := time.Now()
	log := l.runLogger(table, ModeFast)
	log.Info("load started", "columns", len(columns))

	if err := l.step(ctx, exec, log, PhaseDrop, table, l.dialect.DropTable(table)); err != nil {
		return res, err
	}
	if err := l.step(ctx, exec, log, PhaseCreate, table, l.dialect.CreateTextTable(table, columns)); err != nil {
		return res, err
	}

	err := l.stream(ctx, exec, log, src, columns, table, l.opts.FastBatchSize, nil, &res)
	res.Duration = time.Since(start)
	l.finish(log, &res, err)
	return res, err
}

// Adaptive loads src through a staging table and sizes the final columns
// from the data.
//
// Steps:
//  1. drop <table>_temporary and <table>; failures are logged and ignored
//  2. create the staging table with text columns
//  3. insert in batches of Options.AdaptiveBatchSize, tracking widths
//  4. create <table> with VARCHAR(width) or TEXT per column
//  5. copy staging rows into <table>
//  6. drop the staging table
//
// Steps 4-6 run in one transaction when the dialect has transactional DDL
// and exec implements storage.TxRunner. MySQL and MariaDB commit DDL
// implicitly, so there they run as separate statements.
//
// Columns that saw no values get width 1.
func (l *Loader) Adaptive(ctx context.Context, exec storage.Execer, src RecordSource, columns []string, table string) (Result, error) {
	res := Result{Table: table, Mode: ModeOptimized}
	if len(columns) == 0 {
		return res, ErrNoColumns
	}
	start := time.Now()
	temp := table + StagingSuffix
	log := l.runLogger(table, ModeOptimized).With("staging", temp)
	log.Info("load started", "columns", len(columns))

	for _, t := range []string{temp, table} {
		if err := l.step(ctx, exec, log, PhaseDrop, t, l.dialect.DropTable(t)); err != nil {
			log.Warn("drop before load failed", "target", t, "err", err)
		}
	}

	create := l.dialect.CreateTextTable(temp, columns)
	if l.opts.SessionStaging && l.dialect.SupportsTemporaryTables() {
		create = l.dialect.CreateStagingTable(temp, columns)
	}
	if err := l.step(ctx, exec, log, PhaseCreate, temp, create); err != nil {
		return res, err
	}

	widths := NewWidthMap(columns)
	observe := func(i int, v string) { widths.Observe(columns[i], v) }
	if err := l.stream(ctx, exec, log, src, columns, temp, l.opts.AdaptiveBatchSize, observe, &res); err != nil {
		res.Duration = time.Since(start)
		l.finish(log, &res, err)
		return res, err
	}

	err := l.finalize(ctx, exec, log, columns, table, temp, widths.Floored(1))
	res.Duration = time.Since(start)
	l.finish(log, &res, err)
	return res, err
}

// finalize creates the sized table, copies the staged rows and drops the
// staging table.
func (l *Loader) finalize(ctx context.Context, exec storage.Execer, log *slog.Logger, columns []string, table, temp string, widths WidthMap) error {
	swap := func(e storage.Execer) error {
		if err := l.step(ctx, e, log, PhaseCreate, table, l.dialect.CreateSizedTable(table, columns, widths)); err != nil {
			return err
		}
		if err := l.step(ctx, e, log, PhaseCopy, table, l.dialect.CopyTable(temp, table)); err != nil {
			return err
		}
		return l.step(ctx, e, log, PhaseDrop, temp, l.dialect.DropTable(temp))
	}

	tx, ok := exec.(storage.TxRunner)
	if !ok || !l.dialect.TransactionalDDL() {
		return swap(exec)
	}
	log.Debug("finalizing in transaction")
	return tx.InTx(ctx, swap)
}

// stream reads src until io.EOF and flushes batches into table.
func (l *Loader) stream(ctx context.Context, exec storage.Execer, log *slog.Logger, src RecordSource, columns []string, table string, batchSize int, observe func(int, string), res *Result) error {
	backslash := l.dialect.BackslashEscapes()
	literal := l.dialect.LiteralPrefix()
	prefix := l.dialect.InsertPrefix(table, columns)
	batch := NewBatch(batchSize)
	line := 1 // header

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		err := exec.Exec(ctx, batch.Statement(prefix))
		metrics.RecordStep(string(PhaseInsert), started, err)
		if err != nil {
			return stmtErr(PhaseInsert, table, err)
		}
		metrics.RecordBatch()
		metrics.RecordRows("loaded", batch.Len())
		res.Rows += int64(batch.Len())
		res.Batches++
		log.Debug("batch flushed", "batch", res.Batches, "rows", batch.Len(), "duration", time.Since(started).Truncate(time.Millisecond))
		batch.Reset()
		return nil
	}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err == nil && len(rec) != len(columns) {
			err = &csv.RecordError{Line: line, Err: fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(rec), len(columns))}
		}
		if err != nil {
			var re *csv.RecordError
			if !errors.As(err, &re) {
				return fmt.Errorf("read record: %w", err)
			}
			if re.Line > 0 {
				line = re.Line
			}
			if l.opts.OnParseError == FailLoad {
				return &RecordParseError{Line: line, Err: re.Err}
			}
			res.Skipped++
			metrics.RecordRows("skipped", 1)
			log.Debug("record skipped", "line", line, "err", re.Err)
			continue
		}

		batch.Add(renderTuple(rec, backslash, literal, observe))
		if batch.Full() {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// step executes one DDL/DML statement and records it.
func (l *Loader) step(ctx context.Context, exec storage.Execer, log *slog.Logger, phase Phase, table, query string) error {
	started := time.Now()
	err := exec.Exec(ctx, query)
	metrics.RecordStep(string(phase), started, err)
	if err != nil {
		return stmtErr(phase, table, err)
	}
	log.Debug("stage ok", "stage", phase, "target", table, "duration", time.Since(started).Truncate(time.Millisecond))
	return nil
}

func (l *Loader) runLogger(table string, mode Mode) *slog.Logger {
	return l.logger.With("run_id", uuid.NewString(), "table", table, "mode", mode, "dialect", l.dialect.Tag())
}

func (l *Loader) finish(log *slog.Logger, res *Result, err error) {
	attrs := []any{"rows", res.Rows, "skipped", res.Skipped, "batches", res.Batches, "duration", res.Duration.Truncate(time.Millisecond)}
	if err != nil {
		log.Error("load failed", append(attrs, "err", err)...)
		return
	}
	log.Info("load finished", attrs...)
}
