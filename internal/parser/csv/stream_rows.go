// Package csv streams records out of a delimited file for the loaders.
//
// It wraps encoding/csv with:
//   - BOM handling (UTF-8 BOM stripped, UTF-16 BOM files decoded to UTF-8)
//   - a header row read once, up front
//   - per-record errors reported as *RecordError so callers can skip them
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// RecordError reports a single malformed record: a quoting error or a field
// count that does not match the header. The stream stays usable after a
// RecordError; the next call to Next returns the following record.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record at line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Reader yields the records of one delimited stream.
type Reader struct {
	cr     *csv.Reader
	closer io.Closer

	header []string
	read   bool
}

// NewReader wraps r. comma is the detected separator.
func NewReader(r io.Reader, comma rune) *Reader {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	cr.Comma = comma
	cr.LazyQuotes = true
	// 0: the header fixes the field count for every following record.
	cr.FieldsPerRecord = 0
	return &Reader{cr: cr}
}

// Open opens path for streaming. The caller must Close the returned Reader.
func Open(path string, comma rune) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(f, comma)
	r.closer = f
	return r, nil
}

// Header returns the first record. It is read on the first call and cached.
func (r *Reader) Header() ([]string, error) {
	if r.read {
		return r.header, nil
	}
	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	r.header = append([]string(nil), rec...)
	r.read = true
	return r.header, nil
}

// Next returns the next data record, io.EOF at the end of input, a
// *RecordError for a malformed record, or any other error for I/O failure.
//
// The returned slice is owned by the caller.
func (r *Reader) Next() ([]string, error) {
	if !r.read {
		if _, err := r.Header(); err != nil {
			return nil, err
		}
	}
	rec, err := r.cr.Read()
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return nil, &RecordError{Line: pe.StartLine, Err: pe.Err}
	}
	return nil, err
}

// Close closes the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
