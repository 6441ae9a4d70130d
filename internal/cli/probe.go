package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"fileflow/internal/dialect"
	"fileflow/internal/probe"
)

func newProbeCommand(a *app) *cobra.Command {
	var maxBytes int
	cmd := &cobra.Command{
		Use:   "probe FILE",
		Short: "Show the detected separator, columns and a sample summary of a file",
		Long: `Read the start of FILE and report what a load would see: the detected
separator, each header with its sanitized column name, and per-column
statistics over the sampled rows (non-blank values, distinct values and the
longest value, with the column type an optimized load would pick for it).

The "first line" report applies the plain header-line rule (first of
, ; tab | space NUL present wins, quotes ignored). It can differ from the
load separator when a quoted header cell contains a separator.

No database connection is needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := probe.Probe(args[0], maxBytes)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "separator: %s\n", probe.SeparatorName(res.Separator))
			fmt.Fprintf(w, "sampled rows: %d\n", len(res.Rows))
			printFirstLine(w, args[0])

			// Column types follow --engine when one is configured.
			d, err := a.cfg.Dialect()
			if err != nil {
				d, _ = dialect.For(dialect.Postgres)
			}
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Header", "Column", "Values", "Distinct", "Unique %", "Max len", "Type"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
				{Number: 5, Align: text.AlignRight},
				{Number: 6, Align: text.AlignRight},
			})
			for i, s := range probe.Stats(res) {
				distinct := fmt.Sprint(s.Distinct)
				if s.Capped {
					distinct = ">=" + distinct
				}
				t.AppendRow(table.Row{
					strings.TrimSpace(res.Headers[i]),
					s.Column,
					s.Values,
					distinct,
					fmt.Sprintf("%.1f", s.Ratio()*100),
					s.MaxLen,
					d.ColumnType(max(s.MaxLen+1, 1)),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&maxBytes, "bytes", probe.DefaultSampleBytes, "number of bytes to sample from the start of the file")
	return cmd
}

func printFirstLine(w io.Writer, path string) {
	line, err := probe.ReadFirstLine(path)
	if err != nil {
		return
	}
	sep, err := probe.FindSeparator(line)
	if err != nil {
		fmt.Fprintln(w, "first line: no separator")
		return
	}
	cols := probe.Headers(line, sep)
	fmt.Fprintf(w, "first line: %s, %d columns (%s)\n", probe.SeparatorName(sep), len(cols), strings.Join(cols, ", "))
}
