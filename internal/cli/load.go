package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fileflow/internal/loader"
	"fileflow/internal/storage"
)

func newLoadCommand(a *app) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "load FILE|DIR",
		Short: "Load a delimited file, or every file in a directory, into a table",
		Long: `Load a .csv, .tsv or .txt file into a table, replacing it.

The separator is detected from the header line. In fast mode every column is
TEXT; optimized mode loads through a staging table and sizes each column to
its longest value. A directory loads each supported file into a table named
after the file.`,
		Example: `  # Load into "sales" (the file name)
  fileflow load data/sales.csv --engine sqlite --dsn app.db

  # Sized columns, fail on the first malformed record
  fileflow load data/sales.csv --mode optimized --strict

  # Every file in a directory
  fileflow load data/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			mode, err := loader.ParseMode(a.cfg.Load.Mode)
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() && table != "" {
				return errors.New("--table cannot be used when loading a directory")
			}

			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			opts := a.cfg.LoaderOptions()
			opts.Logger = a.logger
			l := loader.New(repo.Dialect(), opts)
			guard := storage.NewGuard(repo)
			out := cmd.OutOrStdout()

			if info.IsDir() {
				results, err := l.LoadDirectory(ctx, guard, path, mode)
				for _, r := range results {
					if r.Err != nil {
						fmt.Fprintf(out, "FAILED %s: %v\n", r.Path, r.Err)
						continue
					}
					printLoadResult(cmd, r.Result)
				}
				return err
			}

			var res loader.Result
			err = guard.Do(ctx, func(s storage.Session) error {
				var lerr error
				res, lerr = l.LoadFile(ctx, s, path, table, mode)
				return lerr
			})
			if err != nil {
				return err
			}
			printLoadResult(cmd, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&table, "table", "", "target table (default: sanitized file name)")
	f.String("mode", string(loader.ModeFast), "load mode: fast|optimized")
	f.Bool("strict", false, "fail on the first malformed record instead of skipping it")
	f.Bool("session-staging", false, "use a session TEMPORARY staging table where supported")
	f.Int("batch-size", loader.FastBatchSize, "rows per INSERT in fast mode")
	_ = cmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(loader.ModeFast), string(loader.ModeOptimized)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func printLoadResult(cmd *cobra.Command, r loader.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows into %s (%s, %d batches, %s)\n",
		r.Rows, r.Table, r.Mode, r.Batches, r.Duration.Round(time.Millisecond))
	if r.Skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d malformed records\n", r.Skipped)
	}
}
