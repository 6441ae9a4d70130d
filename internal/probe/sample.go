package probe

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// readCSVSample parses sample bytes into a header row and a slice of data rows.
//
// The implementation is intentionally best-effort and is designed for probing:
//   - records with the wrong field count are skipped
//   - the sample is expected to already be cut to a newline boundary
func readCSVSample(data []byte, delimiter rune) ([]string, [][]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1 // validated manually
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		return nil, nil, err
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows := make([][]string, 0, 64)
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return headers, rows, err
		}
		if len(rec) != len(headers) {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}

	return headers, rows, nil
}
