// Package cli provides the fileflow command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fileflow/internal/config"
	"fileflow/internal/metrics"
	"fileflow/internal/metrics/datadog"
	"fileflow/internal/storage"

	// Every storage backend registers itself for storage.New.
	_ "fileflow/internal/storage/all"
)

// Version is set at build time.
var Version = "dev"

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	stderr  io.Writer
	closers []func() error
}

// NewRootCmd builds the command tree. stderr receives log output.
func NewRootCmd(stderr io.Writer) *cobra.Command {
	root, _ := newRoot(stderr)
	return root
}

func newRoot(stderr io.Writer) (*cobra.Command, *app) {
	a := &app{stderr: stderr, logger: slog.New(slog.DiscardHandler)}

	root := &cobra.Command{
		Use:   "fileflow",
		Short: "Load delimited files into SQL databases and export tables back out",
		Long: `fileflow bulk-loads CSV/TSV/TXT files into PostgreSQL, MySQL, MariaDB,
SQLite or SQL Server, and exports tables back to delimited files.

Settings come from ./fileflow.yaml (or --config), FILEFLOW_* environment
variables and flags, in increasing order of precedence.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	pf.String("engine", "", "database engine: postgres|mysql|mariadb|sqlite|mssql")
	pf.String("dsn", "", "connection string; ${VAR} references are expanded")
	pf.String("schema", "", "schema for tables and cleanup (default: engine default)")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.String("metrics-backend", config.MetricsNone, "metrics backend: none|datadog")

	_ = root.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"postgres", "mysql", "mariadb", "sqlite", "mssql"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newLoadCommand(a),
		newExportCommand(a),
		newTablesCommand(a),
		newScriptCommand(a),
		newExecCommand(a),
		newCleanupCommand(a),
		newProbeCommand(a),
	)
	return root, a
}

// setup loads the configuration, then builds the logger and the metrics
// backend.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	if cfg.File != "" {
		a.logger.Debug("config loaded", "file", cfg.File)
	}

	if cfg.MetricsBackend == config.MetricsDatadog {
		b, err := datadog.NewBackend(cmd.Context(), datadog.Options{
			JobName:    cfg.Datadog.Job,
			Tags:       datadog.ParseTagsCSV(cfg.Datadog.Tags),
			FlushEvery: cfg.Datadog.FlushEvery,
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		a.closers = append(a.closers, func() error {
			defer metrics.SetBackend(nil)
			return b.Close()
		})
	}
	return nil
}

// close runs the registered closers in reverse order.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openRepository connects to the configured database.
func (a *app) openRepository(ctx context.Context) (storage.Repository, error) {
	if _, err := a.cfg.Dialect(); err != nil {
		return nil, err
	}
	repo, err := storage.New(ctx, a.cfg.Storage())
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return repo, nil
}

// Execute runs the command tree with args and prints any error to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRoot(stderr)
	root.SetOut(stdout)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		fmt.Fprintf(stderr, "metrics: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// Main is the process entry point used by cmd/fileflow.
func Main(ctx context.Context) int {
	if err := Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		return 1
	}
	return 0
}
