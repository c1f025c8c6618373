// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT
//
// Concurrent fanout over a slice of work items, one goroutine per item.

package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run executes fn once per item concurrently and returns results in the
// same order as items. The first error returned by any fn call cancels the
// context passed to the others and is returned from Run together with a
// nil result slice.
func Run[I any, T any](ctx context.Context, items []I, fn func(context.Context, I) (T, error)) ([]T, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]T, len(items))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunIndexed is Run with the item's index passed to fn, for callers that
// need to label per-partition work (log fields, output file names) without
// threading an extra wrapper type through items.
func RunIndexed[I any, T any](ctx context.Context, items []I, fn func(context.Context, int, I) (T, error)) ([]T, error) {
	return Run(ctx, indexed(items), func(ctx context.Context, iw indexedItem[I]) (T, error) {
		return fn(ctx, iw.index, iw.value)
	})
}

type indexedItem[I any] struct {
	index int
	value I
}

func indexed[I any](items []I) []indexedItem[I] {
	out := make([]indexedItem[I], len(items))
	for i, v := range items {
		out[i] = indexedItem[I]{index: i, value: v}
	}
	return out
}
