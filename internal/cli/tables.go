package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"fileflow/internal/exporter"
	"fileflow/internal/loader"
	"fileflow/internal/storage"
)

func newTablesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			var names []string
			err = storage.NewGuard(repo).Do(ctx, func(s storage.Session) error {
				var lerr error
				names, lerr = exporter.ListTables(ctx, s, repo.Dialect(), a.cfg.Schema)
				return lerr
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(w, "(0 tables)")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Table", "Staging"})
			for i, n := range names {
				staging := ""
				if isStaging(n) {
					staging = "yes"
				}
				t.AppendRow(table.Row{i + 1, n, staging})
			}
			t.Render()
			fmt.Fprintf(w, "(%d tables)\n", len(names))
			return nil
		},
	}
}

func isStaging(name string) bool {
	return strings.HasSuffix(name, loader.StagingSuffix)
}
