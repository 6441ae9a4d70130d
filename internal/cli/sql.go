package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fileflow/internal/loader"
	"fileflow/internal/storage"
)

func newScriptCommand(a *app) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "script FILE",
		Short: "Print a server-side bulk-load script for a file",
		Long: `Print DROP, a sized CREATE TABLE and the engine's bulk-load statement
(LOAD DATA INFILE for MySQL/MariaDB, COPY for PostgreSQL) for FILE.

The file is scanned once to size the columns. The script references the
file by absolute path, so the database server must be able to read it.
Only --engine is needed; no connection is opened.`,
		Example: `  fileflow script data/sales.csv --engine mysql > sales.sql
  fileflow exec sales.sql --engine mysql --dsn ...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.cfg.Dialect()
			if err != nil {
				return err
			}
			script, err := loader.New(d, loader.Options{Logger: a.logger}).Script(args[0], table)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), script)
			return err
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "target table (default: sanitized file name)")
	return cmd
}

func newExecCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec FILE",
		Short: "Execute a ';'-separated SQL script",
		Long: `Execute the statements of FILE one by one on a single connection.
Execution stops at the first failing statement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			var n int
			err = storage.NewGuard(repo).Do(ctx, func(s storage.Session) error {
				var xerr error
				n, xerr = loader.ExecScript(ctx, s, string(b))
				return xerr
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Executed %d statements\n", n)
			return err
		},
	}
}

func newCleanupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Drop staging tables left behind by failed optimized loads",
		Long: `Drop every base table of --schema whose name ends in "` + loader.StagingSuffix + `".

Tables are matched by name suffix only: a table of your own with that
suffix is dropped as well. Views are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			l := loader.New(repo.Dialect(), loader.Options{Logger: a.logger})
			var dropped []string
			err = storage.NewGuard(repo).Do(ctx, func(s storage.Session) error {
				var cerr error
				dropped, cerr = l.CleanupStaging(ctx, s, a.cfg.Schema)
				return cerr
			})
			out := cmd.OutOrStdout()
			for _, name := range dropped {
				fmt.Fprintf(out, "dropped %s\n", name)
			}
			fmt.Fprintf(out, "Dropped %d staging tables\n", len(dropped))
			return err
		},
	}
}
