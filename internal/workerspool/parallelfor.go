// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"context"
)

// Range is the half-open interval [Start, End) of work items.
type Range struct {
	Start, End int
}

// Len returns the number of items in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Partition splits [0, numItems) into at most numWorkers disjoint contiguous ranges covering all items.
// Sizes differ by at most one, and the larger ranges come first. Empty ranges are never returned.
func Partition(numItems, numWorkers int) []Range {
	if numItems <= 0 {
		return nil
	}
	numWorkers = max(1, min(numWorkers, numItems))
	ranges := make([]Range, numWorkers)
	base, extra := numItems/numWorkers, numItems%numWorkers
	start := 0
	for i := range ranges {
		size := base
		if i < extra {
			size++
		}
		ranges[i] = Range{Start: start, End: start + size}
		start += size
	}
	return ranges
}

// ParallelFor processes items [0, numItems), partitioned into contiguous ranges, one per worker.
//
// Each worker calls setup once (e.g. to create its scratch space) before its first item, calls body for
// each of its items in increasing order, and calls teardown (if not nil) after its last item, even on errors.
// setup may be nil, in which case the zero S is used.
//
// On the first error, the other workers stop before their next item. The error is returned.
func ParallelFor[S any](pool *Pool, numItems int,
	setup func(worker int) (S, error), teardown func(state S),
	body func(state S, item int) error) error {
	if numItems <= 0 {
		return nil
	}
	ranges := Partition(numItems, pool.AdjustedMaxParallelism())
	return pool.Run(len(ranges), func(ctx context.Context, worker int) error {
		var state S
		if setup != nil {
			var err error
			state, err = setup(worker)
			if err != nil {
				return err
			}
		}
		if teardown != nil {
			defer teardown(state)
		}
		r := ranges[worker]
		for item := r.Start; item < r.End; item++ {
			if err := ctx.Err(); err != nil {
				// Another worker failed: its error is the one reported.
				return nil
			}
			if err := body(state, item); err != nil {
				return err
			}
		}
		return nil
	})
}
