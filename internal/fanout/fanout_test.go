// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT
//
// Unit tests for concurrent fanout.

package fanout

import (
	"context"
	"errors"
	"testing"
)

func TestRun(t *testing.T) {
	items := []int32{10, 20, 30}
	res, err := Run(context.Background(), items, func(ctx context.Context, n int32) (int32, error) {
		return n * 2, nil
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := []int32{20, 40, 60}
	for i := range want {
		if res[i] != want[i] {
			t.Fatalf("result[%d] = %d, want %d", i, res[i], want[i])
		}
	}
}

func TestRunPropagatesError(t *testing.T) {
	items := []int{1, 2, 3}
	boom := errors.New("boom")
	_, err := Run(context.Background(), items, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestRunIndexed(t *testing.T) {
	items := []string{"a", "b", "c"}
	res, err := RunIndexed(context.Background(), items, func(ctx context.Context, idx int, s string) (string, error) {
		if idx == 1 {
			return s + "!", nil
		}
		return s, nil
	})
	if err != nil {
		t.Fatalf("RunIndexed error: %v", err)
	}
	if res[1] != "b!" {
		t.Fatalf("expected b!, got %s", res[1])
	}
}
