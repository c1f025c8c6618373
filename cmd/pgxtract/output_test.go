// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dataxfer/pgsource/internal/config"
)

func TestCellToStringNilIsEmpty(t *testing.T) {
	if got := cellToString(nil); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestCellToStringByteSliceHexEncodes(t *testing.T) {
	got := cellToString([]byte{0xde, 0xad, 0xbe, 0xef})
	if got != `\xdeadbeef` {
		t.Fatalf("got %q", got)
	}
}

func TestCellToStringTimeRFC3339Nano(t *testing.T) {
	tm := time.Date(2020, 2, 29, 12, 0, 0, 0, time.UTC)
	got := cellToString(tm)
	if got != tm.Format(time.RFC3339Nano) {
		t.Fatalf("got %q", got)
	}
}

func TestCellToStringDefaultFormatsWithFmt(t *testing.T) {
	if got := cellToString(int32(42)); got != "42" {
		t.Fatalf("got %q", got)
	}
}

func TestRowWriterCSVWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := newRowWriter(&buf, config.OutputCSV, []string{"id", "name"})
	if err := w.WriteRow([]any{int32(1), "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteRow([]any{int32(2), nil}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 rows): %q", len(lines), buf.String())
	}
	if lines[0] != "id,name" {
		t.Fatalf("header = %q, want id,name", lines[0])
	}
	if lines[2] != "2," {
		t.Fatalf("row 2 = %q, want \"2,\"", lines[2])
	}
}

func TestRowWriterJSONEncodesOneObjectPerRow(t *testing.T) {
	var buf bytes.Buffer
	w := newRowWriter(&buf, config.OutputJSON, []string{"id"})
	if err := w.WriteRow([]any{int32(1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"id":1`) {
		t.Fatalf("got %q", buf.String())
	}
}
