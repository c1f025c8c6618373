package pgsource

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"time"
)

func newTestCSVParser(ncols int, rows ...[]csvField) *csvParser {
	p := &csvParser{rowbuf: rows}
	p.cursor.ncols = ncols
	return p
}

func plainFields(vals ...string) []csvField {
	out := make([]csvField, len(vals))
	for i, v := range vals {
		out[i] = csvField{text: v}
	}
	return out
}

func TestReadCSVRecordSplitsOnComma(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("1,a,3.5\n2,b,4.5\n"))
	fields, err := readCSVRecord(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{fields[0].text, fields[1].text, fields[2].text}
	want := []string{"1", "a", "3.5"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("field %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadCSVRecordHandlesQuotedFieldWithEscapedQuote(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(`"a""b",plain` + "\n"))
	fields, err := readCSVRecord(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields[0].text != `a"b` || !fields[0].quoted {
		t.Fatalf("got %+v", fields[0])
	}
	if fields[1].text != "plain" || fields[1].quoted {
		t.Fatalf("got %+v", fields[1])
	}
}

func TestReadCSVRecordQuotedEmptyStringIsNotNull(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(`"",x` + "\n"))
	fields, err := readCSVRecord(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields[0].text != "" || !fields[0].quoted {
		t.Fatalf("got %+v", fields[0])
	}
	if fields[0].isNull() {
		t.Fatal("a quoted empty string must not be treated as NULL")
	}
}

func TestReadCSVRecordUnquotedEmptyFieldIsNull(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(",x\n"))
	fields, err := readCSVRecord(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fields[0].isNull() {
		t.Fatal("an unquoted empty field must be treated as NULL")
	}
}

func TestReadCSVRecordEOFAfterLastRecordReturnsIOEOF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	if _, err := readCSVRecord(r); err != io.EOF {
		t.Fatalf("got %v, want io.EOF for an empty reader", err)
	}
}

func TestFixTzOffsetPadsShortOffset(t *testing.T) {
	cases := map[string]string{
		"2020-02-29 12:00:00+00":       "2020-02-29 12:00:00+00:00",
		"2020-02-29 12:00:00-05":       "2020-02-29 12:00:00-05:00",
		"2020-02-29 12:00:00+05:30":    "2020-02-29 12:00:00+05:30",
		"1970-01-01 00:00:01.5+00":     "1970-01-01 00:00:01.5+00:00",
	}
	for in, want := range cases {
		if got := fixTzOffset(in); got != want {
			t.Errorf("fixTzOffset(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseArrayElementsEmptyBraces(t *testing.T) {
	if got := parseArrayElements("{}"); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestParseArrayElementsSimple(t *testing.T) {
	got := parseArrayElements("{1,2,3}")
	want := []string{"1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseArrayElementsQuotedCommas(t *testing.T) {
	got := parseArrayElements(`{"a,b","c"}`)
	want := []string{"a,b", "c"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCSVProduceInt4AndBool(t *testing.T) {
	p := newTestCSVParser(2, plainFields("42", "t"))

	n, err := p.ProduceInt4()
	if err != nil || n != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", n, err)
	}
	p.Next()
	b, err := p.ProduceBool()
	if err != nil || !b {
		t.Fatalf("got (%v, %v), want (true, nil)", b, err)
	}
}

func TestCSVProduceBoolFalse(t *testing.T) {
	p := newTestCSVParser(1, plainFields("f"))
	b, err := p.ProduceBool()
	if err != nil || b {
		t.Fatalf("got (%v, %v), want (false, nil)", b, err)
	}
}

func TestCSVProduceBoolInvalidFails(t *testing.T) {
	p := newTestCSVParser(1, plainFields("maybe"))
	if _, err := p.ProduceBool(); err == nil {
		t.Fatal("expected CannotProduce error")
	}
}

func TestCSVProduceTextNullableOnEmptyField(t *testing.T) {
	p := newTestCSVParser(1, plainFields(""))
	v, err := p.ProduceTextNullable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("got %v, want nil", v)
	}
}

func TestCSVProduceByteA(t *testing.T) {
	p := newTestCSVParser(1, plainFields(`\xdeadbeef`))
	got, err := p.ProduceByteA()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %x, want %x", got, want)
		}
	}
}

func TestCSVProduceByteAMissingPrefixFails(t *testing.T) {
	p := newTestCSVParser(1, plainFields("deadbeef"))
	if _, err := p.ProduceByteA(); err == nil {
		t.Fatal("expected error for bytea field missing \\x prefix")
	}
}

func TestCSVProduceDate(t *testing.T) {
	p := newTestCSVParser(1, plainFields("2020-02-29"))
	got, err := p.ProduceDate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2020 || got.Month() != time.February || got.Day() != 29 {
		t.Fatalf("got %v", got)
	}
}

func TestCSVProduceTimestampTzAppliesOffsetFix(t *testing.T) {
	p := newTestCSVParser(1, plainFields("2020-02-29 12:00:00+00"))
	got, err := p.ProduceTimestampTz()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UTC().Hour() != 12 {
		t.Fatalf("got %v", got)
	}
}

func TestCSVProduceInt4ArrayBasic(t *testing.T) {
	p := newTestCSVParser(1, plainFields("{1,2,3}"))
	got, err := p.ProduceInt4Array()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCSVProduceInt4ArrayEmpty(t *testing.T) {
	p := newTestCSVParser(1, plainFields("{}"))
	got, err := p.ProduceInt4Array()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestCSVProduceJSONPassesThroughBytes(t *testing.T) {
	p := newTestCSVParser(1, plainFields(`{"a":1}`))
	got, err := p.ProduceJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("got %s", got)
	}
}

func TestCSVProduceHstoreUnimplemented(t *testing.T) {
	p := newTestCSVParser(1, plainFields("a=>1"))
	_, err := p.ProduceHstore()
	if err == nil {
		t.Fatal("expected Unimplemented error")
	}
	if err.(*Error).Kind != ErrKindUnimplemented {
		t.Fatalf("kind = %v, want ErrKindUnimplemented", err.(*Error).Kind)
	}
}
