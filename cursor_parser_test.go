package pgsource

import (
	"testing"

	"github.com/google/uuid"
)

func newTestCursorParser(ncols int, rows ...[]any) *cursorParser {
	p := &cursorParser{rowbuf: rows}
	p.cursor.ncols = ncols
	return p
}

func TestCursorProduceScalarsByGoType(t *testing.T) {
	p := newTestCursorParser(3, []any{int32(7), "hello", true})

	n, err := p.ProduceInt4()
	if err != nil || n != 7 {
		t.Fatalf("got (%d, %v), want (7, nil)", n, err)
	}
	p.Next()
	s, err := p.ProduceText()
	if err != nil || s != "hello" {
		t.Fatalf("got (%q, %v), want (hello, nil)", s, err)
	}
	p.Next()
	b, err := p.ProduceBool()
	if err != nil || !b {
		t.Fatalf("got (%v, %v), want (true, nil)", b, err)
	}
}

func TestCursorProduceNullableNilCell(t *testing.T) {
	p := newTestCursorParser(1, []any{nil})
	v, err := p.ProduceInt4Nullable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("got %v, want nil", v)
	}
}

func TestCursorProduceNonNullableOnNilFails(t *testing.T) {
	p := newTestCursorParser(1, []any{nil})
	if _, err := p.ProduceInt4(); err == nil {
		t.Fatal("expected error producing a non-optional value from a NULL cell")
	}
}

func TestCursorProduceWrongGoTypeFails(t *testing.T) {
	p := newTestCursorParser(1, []any{"not an int"})
	if _, err := p.ProduceInt4(); err == nil {
		t.Fatal("expected CannotProduce error for type mismatch")
	}
}

func TestCursorProduceArray(t *testing.T) {
	p := newTestCursorParser(1, []any{[]any{int32(1), int32(2), int32(3)}})
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

func TestCursorProduceUUID(t *testing.T) {
	u := uuid.New()
	p := newTestCursorParser(1, []any{u})
	got, err := p.ProduceUUID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != u {
		t.Fatalf("got %v, want %v", got, u)
	}
}

func TestCursorProduceJSONFromStringValue(t *testing.T) {
	p := newTestCursorParser(1, []any{`{"a":1}`})
	got, err := p.ProduceJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("got %s", got)
	}
}

func TestCursorProduceHstoreDelegatesToTextParser(t *testing.T) {
	p := newTestCursorParser(1, []any{`"a"=>"1", "b"=>NULL`})
	got, err := p.ProduceHstore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["a"] == nil || *got["a"] != "1" {
		t.Fatalf("got %v", got)
	}
	if got["b"] != nil {
		t.Fatalf("got %v, want b=nil", got["b"])
	}
}

func TestCursorProduceHstoreNullableOnNilCell(t *testing.T) {
	p := newTestCursorParser(1, []any{nil})
	got, err := p.ProduceHstoreNullable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestCursorCellPastBufferedRowsFails(t *testing.T) {
	p := newTestCursorParser(1, []any{int32(1)})
	p.Next()
	if _, err := p.ProduceInt4(); err == nil {
		t.Fatal("expected error reading past the end of the buffered batch")
	}
}
