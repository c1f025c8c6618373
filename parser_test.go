package pgsource

import "testing"

func TestCursorRowMajorWrap(t *testing.T) {
	c := &cursor{ncols: 3}

	want := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	for i, w := range want {
		row, col := c.next()
		if row != w[0] || col != w[1] {
			t.Fatalf("call %d: got (%d,%d), want (%d,%d)", i, row, col, w[0], w[1])
		}
	}
}

func TestCursorResetReturnsToOrigin(t *testing.T) {
	c := &cursor{ncols: 2}
	c.next()
	c.next()
	c.next()
	c.reset()
	row, col := c.current()
	if row != 0 || col != 0 {
		t.Fatalf("after reset got (%d,%d), want (0,0)", row, col)
	}
}

func TestCursorSingleColumnAdvancesRowEveryCall(t *testing.T) {
	c := &cursor{ncols: 1}
	for i := 0; i < 3; i++ {
		row, col := c.next()
		if row != i || col != 0 {
			t.Fatalf("call %d: got (%d,%d), want (%d,0)", i, row, col, i)
		}
	}
}

func TestWrongTypeReportsSchemaColumnType(t *testing.T) {
	schema := Schema{{Type: TypeInt4}, {Type: TypeText}}

	err := wrongType("Bool", schema, 1)
	var cp *CannotProduceError
	if !asCannotProduce(t, err, &cp) {
		return
	}
	if cp.Target != "Bool" {
		t.Fatalf("target = %q, want Bool", cp.Target)
	}
	if cp.Value != "Text" {
		t.Fatalf("value = %q, want Text (the actual schema type)", cp.Value)
	}
}

func TestWrongTypeOutOfRangeColumnReportsUnknown(t *testing.T) {
	schema := Schema{{Type: TypeInt4}}
	err := wrongType("Bool", schema, 5)
	var cp *CannotProduceError
	asCannotProduce(t, err, &cp)
	if cp.Value != "Unknown" {
		t.Fatalf("value = %q, want Unknown", cp.Value)
	}
}

func asCannotProduce(t *testing.T, err *Error, out **CannotProduceError) bool {
	t.Helper()
	cp, ok := err.Err.(*CannotProduceError)
	if !ok {
		t.Fatalf("err.Err = %T, want *CannotProduceError", err.Err)
		return false
	}
	*out = cp
	return true
}
