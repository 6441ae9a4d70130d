// Package sanitize turns raw header cells into safe column identifiers and raw
// field values into single-quoted SQL literal bodies.
//
// All functions are pure and never fail. Column names produced here are
// passed through dialect quoting before they reach SQL; values are embedded
// as '...' literals by the loaders.
package sanitize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// PlaceholderPrefix names columns whose header sanitizes to nothing.
const PlaceholderPrefix = "column_"

// columnFilter drops every rune a column identifier must not carry.
// runes.Remove is stateless, so the shared transformer is safe for
// concurrent use.
var columnFilter = runes.Remove(runes.Predicate(dropFromColumn))

func dropFromColumn(r rune) bool {
	switch r {
	case '\t', '\n':
		return false
	case '\'', '\\', '"', '.', '/':
		return true
	case '\uFEFF', '\u200B', '\u200C', '\u200D', '\u2060':
		return true
	}
	return unicode.IsControl(r)
}

// Column sanitizes one header cell.
//
// The result is trimmed, free of control characters (tab and newline
// excepted), zero-width marks, the BOM and the characters ' \ " . /, with
// spaces mapped to underscores and letters lower-cased. Column is idempotent.
// It may return "", which FormatColumnNames replaces with a placeholder.
func Column(s string) string {
	s = strings.TrimSpace(s)
	if out, _, err := transform.String(columnFilter, s); err == nil {
		s = out
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ToLower(s)
}

// Placeholder returns the positional name for the column at 0-based index i.
func Placeholder(i int) string {
	return PlaceholderPrefix + strconv.Itoa(i+1)
}

// FormatColumnNames sanitizes every header. The result has exactly one entry
// per header, in the same order; empty results become column_<i+1>.
func FormatColumnNames(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		c := Column(h)
		if c == "" {
			c = Placeholder(i)
		}
		out[i] = c
	}
	return out
}

// Dedupe makes names unique by suffixing repeats with _2, _3, ... in order of
// appearance. A suffix already taken by another column is skipped. The first
// occurrence of a name is never renamed.
func Dedupe(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}

	seen := make(map[string]int, len(names))
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out[i] = n
			continue
		}
		k := seen[n]
		cand := n + "_" + strconv.Itoa(k)
		for taken[cand] {
			k++
			cand = n + "_" + strconv.Itoa(k)
		}
		seen[n] = k
		taken[cand] = true
		out[i] = cand
	}
	return out
}

var (
	valueReplacer = strings.NewReplacer(
		"\r\n", " ",
		"\r", " ",
		"\n", " ",
		"'", "''",
		`\`, `\\`,
		`"`, "",
		"\x00", "",
	)
	valueReplacerNoBackslash = strings.NewReplacer(
		"\r\n", " ",
		"\r", " ",
		"\n", " ",
		"'", "''",
		`"`, "",
		"\x00", "",
	)
)

// Value renders a field for embedding between single quotes on an engine
// where backslash is an escape character: trimmed, ' doubled, \ doubled,
// " and NUL dropped, each line break (CR, LF or CRLF) collapsed to a space.
func Value(s string) string {
	return valueReplacer.Replace(strings.TrimSpace(s))
}

// ValueFor is Value with the backslash rule chosen per engine. Engines that
// treat backslash literally (standard_conforming_strings) must not have it
// doubled, or the stored value would change.
func ValueFor(s string, backslashEscapes bool) string {
	if backslashEscapes {
		return Value(s)
	}
	return valueReplacerNoBackslash.Replace(strings.TrimSpace(s))
}

// EscapeRecord renders a record as the inside of a VALUES tuple:
// 'a', 'b', 'c'. prefix is written before each opening quote, so "N"
// yields N'a', N'b'.
func EscapeRecord(fields []string, backslashEscapes bool, prefix string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(Literal(ValueFor(f, backslashEscapes), prefix))
	}
	return b.String()
}

// Literal wraps an already sanitized value in single quotes, preceded by
// prefix.
func Literal(v, prefix string) string {
	return prefix + "'" + v + "'"
}
