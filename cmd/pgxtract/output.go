// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dataxfer/pgsource/internal/config"
)

// rowWriter serializes decoded rows to an io.Writer, guarding it against
// concurrent partition goroutines. Output formatting here is unrelated to
// the COPY CSV wire format parsed by csv_parser.go: it's plain column
// rendering, so the standard library's encoding/csv is the right tool.
type rowWriter struct {
	mu     sync.Mutex
	format config.OutputFormat
	names  []string

	w    io.Writer
	csvw *csv.Writer
	jenc *json.Encoder

	headerWritten bool
}

func newRowWriter(w io.Writer, format config.OutputFormat, names []string) *rowWriter {
	rw := &rowWriter{format: format, names: names, w: w}
	switch format {
	case config.OutputJSON:
		rw.jenc = json.NewEncoder(w)
	default:
		rw.csvw = csv.NewWriter(w)
	}
	return rw
}

// WriteRow renders one decoded row. Column order follows rw.names; a nil
// cell means SQL NULL.
func (rw *rowWriter) WriteRow(cells []any) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.format == config.OutputJSON {
		obj := make(map[string]any, len(cells))
		for i, name := range rw.names {
			if i < len(cells) {
				obj[name] = cells[i]
			}
		}
		return rw.jenc.Encode(obj)
	}

	if !rw.headerWritten {
		if err := rw.csvw.Write(rw.names); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		rw.headerWritten = true
	}
	record := make([]string, len(cells))
	for i, c := range cells {
		record[i] = cellToString(c)
	}
	if err := rw.csvw.Write(record); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	rw.csvw.Flush()
	return rw.csvw.Error()
}

// cellToString renders one decoded cell for CSV output. NULL becomes the
// empty string, matching psql's unquoted-NULL convention.
func cellToString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case []byte:
		return "\\x" + hex.EncodeToString(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case time.Duration:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
