package probe

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestFindSeparator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want rune
	}{
		{"a,b;c", ','},
		{"a;b|c", ';'},
		{"a\tb c", '\t'},
		{"a|b c", '|'},
		{"a b", ' '},
		{"a\x00b", '\x00'},
	}
	for _, tt := range tests {
		got, err := FindSeparator(tt.line)
		if err != nil {
			t.Fatalf("FindSeparator(%q) error: %v", tt.line, err)
		}
		if got != tt.want {
			t.Fatalf("FindSeparator(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestFindSeparator_NotFound(t *testing.T) {
	t.Parallel()

	if _, err := FindSeparator("single"); !errors.Is(err, ErrSeparatorNotFound) {
		t.Fatalf("FindSeparator(single) err = %v, want ErrSeparatorNotFound", err)
	}
	if _, err := FindSeparator(""); !errors.Is(err, ErrSeparatorNotFound) {
		t.Fatalf("FindSeparator(\"\") err = %v, want ErrSeparatorNotFound", err)
	}
}

func TestDetectSeparatorInFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    rune
	}{
		{"comma.csv", "a,b\n1,2\n", ','},
		{"semi.csv", "a;b\n1;2\n", ';'},
		{"tab.TSV", "a\tb\n1\t2\n", '\t'},
		{"pipe.txt", "a|b\n1|2\n", '|'},
		{"bom.csv", "\uFEFFa;b\r\n1;2\r\n", ';'},
		// comma only appears inside a quoted header cell
		{"quoted.csv", "\"x,y\";z\n1;2\n", ';'},
		{"one.csv", "single\nrow\n", ','},
		{"quoted-one.csv", "\"a,b\"\n\"c,d\"\n", ','},
	}
	for _, tt := range tests {
		p := writeFile(t, tt.name, tt.content)
		got, err := DetectSeparatorInFile(p)
		if err != nil {
			t.Fatalf("DetectSeparatorInFile(%s) error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("DetectSeparatorInFile(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDetectSeparatorInFile_InvalidFormat(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "data.json", `{"a":1}`)
	if _, err := DetectSeparatorInFile(p); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("json extension err = %v, want ErrInvalidFormat", err)
	}

	p = writeFile(t, "empty.csv", "")
	if _, err := DetectSeparatorInFile(p); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("empty file err = %v, want ErrEmptyFile", err)
	}
}

func TestReadFirstLine(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "f.csv", "\uFEFFHeader 1,Header2\r\nx,y\n")
	got, err := ReadFirstLine(p)
	if err != nil {
		t.Fatalf("ReadFirstLine error: %v", err)
	}
	if got != "Header 1,Header2" {
		t.Fatalf("ReadFirstLine = %q", got)
	}

	p = writeFile(t, "nonl.csv", "a,b")
	if got, err := ReadFirstLine(p); err != nil || got != "a,b" {
		t.Fatalf("ReadFirstLine(no newline) = %q, %v", got, err)
	}

	p = writeFile(t, "empty.csv", "")
	if _, err := ReadFirstLine(p); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("ReadFirstLine(empty) err = %v", err)
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "people.csv", "Header 1, Header2,\n1,O'Brien,x\n2\n3,c,y\n")
	res, err := Probe(p, 0)
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if res.Separator != ',' {
		t.Fatalf("Separator = %q", res.Separator)
	}
	if want := []string{"header_1", "header2", "column_3"}; !reflect.DeepEqual(res.Columns, want) {
		t.Fatalf("Columns = %q, want %q", res.Columns, want)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2 (short row skipped)", len(res.Rows))
	}
}

func TestPeekFile_CutsAtLastNewline(t *testing.T) {
	t.Parallel()

	content := "a,b\n" + strings.Repeat("1,2\n", 10)
	p := writeFile(t, "big.csv", content)

	got, err := peekFile(p, 10)
	if err != nil {
		t.Fatalf("peekFile error: %v", err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Fatalf("peekFile = %q", got)
	}
}

func TestSeparatorName(t *testing.T) {
	t.Parallel()

	for sep, want := range map[rune]string{',': "comma", ';': "semicolon", '\t': "tab", '|': "pipe", ' ': "space"} {
		if got := SeparatorName(sep); got != want {
			t.Fatalf("SeparatorName(%q) = %q, want %q", sep, got, want)
		}
	}
}

func TestHeaders(t *testing.T) {
	t.Parallel()

	got := Headers(`"Header 1"; Header2;;"x.y"`, ';')
	want := []string{"header_1", "header2", "column_3", "xy"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Headers() = %v, want %v", got, want)
	}
}
