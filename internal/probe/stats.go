package probe

import "strings"

// distinctCap bounds distinct-value tracking per column.
const distinctCap = 10000

// ColumnStats summarizes one column of a probed sample.
type ColumnStats struct {
	Column string
	// Values counts sample rows where the column is not blank.
	Values int
	// Distinct counts distinct non-blank values, up to distinctCap.
	Distinct int
	Capped   bool
	// MaxLen is the longest raw value in bytes.
	MaxLen int
}

// Ratio is Distinct/Values, or 0 for a column with no values.
func (s ColumnStats) Ratio() float64 {
	if s.Values == 0 {
		return 0
	}
	return float64(s.Distinct) / float64(s.Values)
}

// Stats computes per-column statistics for the sample rows of res, in
// column order. Blank values are treated as missing and do not count toward
// Values or Distinct. Rows with the wrong field count are skipped.
func Stats(res Result) []ColumnStats {
	out := make([]ColumnStats, len(res.Columns))
	sets := make([]map[string]struct{}, len(res.Columns))
	for i, col := range res.Columns {
		out[i].Column = col
		sets[i] = make(map[string]struct{})
	}

	for _, row := range res.Rows {
		if len(row) != len(res.Columns) {
			continue
		}
		for i, raw := range row {
			out[i].MaxLen = max(out[i].MaxLen, len(raw))
			v := strings.TrimSpace(raw)
			if v == "" {
				continue
			}
			out[i].Values++
			if out[i].Capped {
				continue
			}
			sets[i][v] = struct{}{}
			if len(sets[i]) >= distinctCap {
				out[i].Capped = true
				sets[i] = nil
			}
		}
	}

	for i := range out {
		if out[i].Capped {
			out[i].Distinct = distinctCap
			continue
		}
		out[i].Distinct = len(sets[i])
	}
	return out
}
