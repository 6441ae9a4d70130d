package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fileflow/internal/exporter"
	"fileflow/internal/storage"
)

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [TABLE...]",
		Short: "Export tables to <table>_export.csv files",
		Long: `Export each named table, or every table of --schema when none are named,
to <dir>/<table>_export.csv. Rows are read in pages of 5000.

A table that fails to export does not stop the others.`,
		Example: `  fileflow export orders items --dir out --separator semicolon
  fileflow export --schema reporting`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sep, err := exporter.ParseSeparator(a.cfg.Export.Separator)
			if err != nil {
				return err
			}

			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			e := exporter.New(repo.Dialect(), exporter.Options{Separator: sep, Logger: a.logger})
			var sum exporter.Summary
			err = storage.NewGuard(repo).Do(ctx, func(s storage.Session) error {
				tables := args
				if len(tables) == 0 {
					all, err := e.ListTables(ctx, s, a.cfg.Schema)
					if err != nil {
						return err
					}
					tables = all
				}
				var xerr error
				sum, xerr = e.ExportTables(ctx, s, tables, a.cfg.Export.Dir)
				return xerr
			})

			out := cmd.OutOrStdout()
			for _, r := range sum.Results {
				fmt.Fprintf(out, "%s -> %s (%d rows)\n", r.Table, r.Path, r.Rows)
			}
			if sum.Total > 0 {
				fmt.Fprintln(out, sum.String())
			}
			return err
		},
	}

	f := cmd.Flags()
	f.String("dir", ".", "output directory")
	seps := make([]string, 0, 4)
	for _, s := range exporter.Separators() {
		seps = append(seps, string(s))
	}
	f.String("separator", string(exporter.Comma), "field separator: "+strings.Join(seps, "|"))
	_ = cmd.RegisterFlagCompletionFunc("separator", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return seps, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
