package console

import (
	"bytes"
	"encoding/csv"

	"github.com/pkg/errors"
)

// writeCsv renders a header row plus records with RFC-4180 quoting and CRLF
// line endings. Embedded quotes are doubled and embedded commas/newlines keep
// the field quoted, so a standard parser round-trips every field exactly.
func writeCsv(columns []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(columns); err != nil {
		return nil, errors.Wrap(err, "[writeCsv] header")
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return nil, errors.Wrap(err, "[writeCsv] record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "[writeCsv] flush")
	}
	return buf.Bytes(), nil
}
