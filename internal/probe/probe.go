// Package probe inspects a delimited file before it is loaded.
//
// The probe package is responsible for:
//   - Detecting the field separator from a header line or a bounded file sample
//   - Reading the header row and producing sanitized column names
//   - Returning a small sample of rows for display (fileflow probe)
//
// Detection runs once per load, before any DDL is issued, and never
// mid-stream. Sampling is bounded in memory: at most DefaultSampleBytes are
// read and the sample is cut at the last complete line.
package probe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fileflow/internal/sanitize"
)

var (
	// ErrSeparatorNotFound is returned by FindSeparator when the line holds
	// none of the candidate separators.
	ErrSeparatorNotFound = errors.New("probe: could not detect a valid separator")

	// ErrInvalidFormat is returned by file-based detection when the extension
	// is not recognized or no candidate separator parses the sample.
	ErrInvalidFormat = errors.New("probe: invalid file format")

	// ErrEmptyFile is returned when a file has no first line to inspect.
	ErrEmptyFile = errors.New("probe: file is empty")
)

// LineCandidates is the ordered separator list for line-based detection.
// The first candidate present in the line wins.
var LineCandidates = []rune{',', ';', '\t', '|', ' ', '\x00'}

// FileCandidates is the ordered separator list for file-based detection.
// NUL is excluded: encoding/csv rejects it as a delimiter.
var FileCandidates = []rune{',', ';', '\t', '|', ' '}

// Extensions lists the recognized file extensions (lower case, with dot).
var Extensions = []string{".csv", ".tsv", ".txt"}

// DefaultSampleBytes bounds how much of a file detection reads.
const DefaultSampleBytes = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FindSeparator returns the first candidate separator contained in line.
func FindSeparator(line string) (rune, error) {
	for _, sep := range LineCandidates {
		if strings.ContainsRune(line, sep) {
			return sep, nil
		}
	}
	return 0, ErrSeparatorNotFound
}

// HasSupportedExtension reports whether path ends in one of Extensions,
// case-insensitively.
func HasSupportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DetectSeparatorInFile detects the separator of the file at path.
//
// A candidate is accepted when it occurs in the first line and the sample
// parses with it into a header of at least two fields. When no candidate
// qualifies, the file is read as a single column with the comma separator.
//
// Errors:
//   - ErrInvalidFormat (wrapped) for an unrecognized extension or when the
//     sample does not parse at all.
//   - ErrEmptyFile when the file has no content.
//   - Any I/O error from opening or reading the file.
func DetectSeparatorInFile(path string) (rune, error) {
	if !HasSupportedExtension(path) {
		return 0, fmt.Errorf("%w: unsupported extension %q", ErrInvalidFormat, filepath.Ext(path))
	}
	sample, err := peekFile(path, DefaultSampleBytes)
	if err != nil {
		return 0, err
	}
	return detectInSample(sample)
}

func detectInSample(sample []byte) (rune, error) {
	sample = bytes.TrimPrefix(sample, utf8BOM)
	if len(bytes.TrimSpace(sample)) == 0 {
		return 0, ErrEmptyFile
	}
	first := firstLine(sample)

	for _, sep := range FileCandidates {
		if !strings.ContainsRune(first, sep) {
			continue
		}
		headers, _, err := readCSVSample(sample, sep)
		if err != nil || len(headers) < 2 {
			continue
		}
		return sep, nil
	}

	// single column
	if headers, _, err := readCSVSample(sample, ','); err == nil && len(headers) == 1 {
		return ',', nil
	}
	return 0, ErrInvalidFormat
}

// ReadFirstLine returns the first line of path without its line terminator
// and without a leading UTF-8 BOM.
func ReadFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimPrefix(line, "\uFEFF")
	line = strings.TrimRight(line, "\r\n")
	if line == "" && errors.Is(err, io.EOF) {
		return "", ErrEmptyFile
	}
	return line, nil
}

// Headers splits a raw header line on sep, strips double quotes and returns
// sanitized column names. Quoted separators are not honored; use Probe for
// files whose header quotes a separator.
func Headers(line string, sep rune) []string {
	parts := strings.Split(line, string(sep))
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, `"`, "")
	}
	return sanitize.FormatColumnNames(parts)
}

// Result describes a probed file.
type Result struct {
	Separator rune
	// Headers is the raw header row.
	Headers []string
	// Columns are the sanitized names aligned with Headers.
	Columns []string
	// Rows is a sample of data rows; rows with the wrong field count are
	// left out.
	Rows [][]string
}

// Probe detects the separator of path and reads its header and up to
// maxBytes of sample rows. maxBytes <= 0 means DefaultSampleBytes.
func Probe(path string, maxBytes int) (Result, error) {
	var res Result

	if !HasSupportedExtension(path) {
		return res, fmt.Errorf("%w: unsupported extension %q", ErrInvalidFormat, filepath.Ext(path))
	}
	if maxBytes <= 0 {
		maxBytes = DefaultSampleBytes
	}
	sample, err := peekFile(path, maxBytes)
	if err != nil {
		return res, err
	}
	sep, err := detectInSample(sample)
	if err != nil {
		return res, err
	}

	headers, rows, err := readCSVSample(bytes.TrimPrefix(sample, utf8BOM), sep)
	if err != nil {
		return res, fmt.Errorf("read csv sample: %w", err)
	}
	res.Separator = sep
	res.Headers = headers
	res.Columns = sanitize.FormatColumnNames(headers)
	res.Rows = rows
	return res, nil
}

// SeparatorName returns a display name for sep.
func SeparatorName(sep rune) string {
	switch sep {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	case ' ':
		return "space"
	case '\x00':
		return "nul"
	default:
		return string(sep)
	}
}

// peekFile reads at most n bytes from path. When the read fills the buffer
// the sample is cut at the last newline to avoid a half-line record.
func peekFile(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b := make([]byte, n)
	got, err := io.ReadFull(f, b)
	switch {
	case err == nil:
		if i := bytes.LastIndexByte(b, '\n'); i > 0 {
			return b[:i+1], nil
		}
		return b, nil
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return b[:got], nil
	default:
		return nil, err
	}
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), "\r")
}
