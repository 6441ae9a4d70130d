package loader

import (
	"strings"

	"fileflow/internal/sanitize"
)

// Batch accumulates pre-rendered value tuples for one multi-row INSERT.
type Batch struct {
	max    int
	tuples []string
}

// NewBatch returns an empty batch that is Full at size tuples.
func NewBatch(size int) *Batch {
	if size <= 0 {
		size = 1
	}
	return &Batch{max: size, tuples: make([]string, 0, size)}
}

// Add appends one rendered tuple such as "('a', 'b')".
func (b *Batch) Add(tuple string) { b.tuples = append(b.tuples, tuple) }

// Len returns the number of buffered tuples.
func (b *Batch) Len() int { return len(b.tuples) }

// Full reports whether the batch reached its maximum size.
func (b *Batch) Full() bool { return len(b.tuples) >= b.max }

// Statement renders prefix followed by the buffered tuples joined by ", ".
func (b *Batch) Statement(prefix string) string {
	n := len(prefix)
	for _, t := range b.tuples {
		n += len(t) + 2
	}
	var sb strings.Builder
	sb.Grow(n)
	sb.WriteString(prefix)
	for i, t := range b.tuples {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// Reset empties the batch, keeping its capacity.
func (b *Batch) Reset() {
	clear(b.tuples)
	b.tuples = b.tuples[:0]
}

// WidthMap tracks, per column, the maximum sanitized value length plus one.
type WidthMap map[string]int

// NewWidthMap seeds every column with zero.
func NewWidthMap(columns []string) WidthMap {
	w := make(WidthMap, len(columns))
	for _, c := range columns {
		w[c] = 0
	}
	return w
}

// Observe records a sanitized value for column.
func (w WidthMap) Observe(column, value string) {
	if n := len(value) + 1; n > w[column] {
		w[column] = n
	}
}

// Floored returns a copy with every width raised to at least floor.
func (w WidthMap) Floored(floor int) WidthMap {
	out := make(WidthMap, len(w))
	for k, v := range w {
		out[k] = max(v, floor)
	}
	return out
}

// renderTuple sanitizes fields and renders "('a', 'b')", with prefix before
// each literal. observe, when not nil, sees each sanitized value (without
// the prefix or quotes) with its column index.
func renderTuple(fields []string, backslashEscapes bool, prefix string, observe func(i int, v string)) string {
	if observe == nil {
		return "(" + sanitize.EscapeRecord(fields, backslashEscapes, prefix) + ")"
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		v := sanitize.ValueFor(f, backslashEscapes)
		observe(i, v)
		sb.WriteString(sanitize.Literal(v, prefix))
	}
	sb.WriteByte(')')
	return sb.String()
}
