// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package scratch

// Arena groups the scratch buffers used by one worker during one block of work:
// they are acquired with Get and all released at once with Reset.
//
// An Arena is owned by a single goroutine.
type Arena[T any] struct {
	alloc   BufAllocFn[T]
	release BufReleaseFn
	refs    []any
	size    int
}

// NewArena creates an Arena allocating through the given callbacks.
func NewArena[T any](alloc BufAllocFn[T], release BufReleaseFn) *Arena[T] {
	return &Arena[T]{alloc: alloc, release: release}
}

// Get returns a slice of n elements, valid until the next Reset. Its contents are undefined.
func (a *Arena[T]) Get(n int) ([]T, error) {
	ref, data, err := a.alloc(n)
	if err != nil {
		return nil, err
	}
	a.refs = append(a.refs, ref)
	a.size += n
	return data[:n], nil
}

// Len returns the number of elements currently held by the arena.
func (a *Arena[T]) Len() int {
	return a.size
}

// Reset releases every buffer obtained since the last Reset.
func (a *Arena[T]) Reset() {
	for i, ref := range a.refs {
		a.release(ref)
		a.refs[i] = nil
	}
	a.refs = a.refs[:0]
	a.size = 0
}
