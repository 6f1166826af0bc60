// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package scratch provides the temporary buffers used by the compute kernels (packed panels,
// accumulators, per-worker partial results).
//
// Buffers are recycled through a sync.Pool per (dtype, length), and a Pool can be given a byte budget:
// once the bytes of outstanding buffers would exceed it, Acquire fails with ErrResourceExhausted.
package scratch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrResourceExhausted is returned (wrapped) when a scratch buffer can't be allocated.
var ErrResourceExhausted = errors.New("scratch space exhausted")

// Pool of scratch buffers. It's safe for concurrent use.
//
// The zero value is not valid, use New.
type Pool struct {
	pools sync.Map // bufferPoolKey -> *sync.Pool

	limit       int64 // 0 means unlimited.
	outstanding atomic.Int64
	peak        atomic.Int64
}

type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}

// New creates a Pool limited to limitBytes of outstanding buffers. If limitBytes is 0 it is unlimited.
func New(limitBytes int64) *Pool {
	return &Pool{limit: limitBytes}
}

// Limit returns the byte budget, 0 if unlimited.
func (p *Pool) Limit() int64 {
	return p.limit
}

// Outstanding returns the number of bytes currently acquired and not yet released.
func (p *Pool) Outstanding() int64 {
	return p.outstanding.Load()
}

// Peak returns the largest Outstanding value observed.
func (p *Pool) Peak() int64 {
	return p.peak.Load()
}

// String implements fmt.Stringer.
func (p *Pool) String() string {
	if p.limit == 0 {
		return fmt.Sprintf("scratch.Pool(unlimited, outstanding=%s)", humanize.IBytes(uint64(p.Outstanding())))
	}
	return fmt.Sprintf("scratch.Pool(limit=%s, outstanding=%s)",
		humanize.IBytes(uint64(p.limit)), humanize.IBytes(uint64(p.Outstanding())))
}

func (p *Pool) getBufferPool(key bufferPoolKey) *sync.Pool {
	poolInterface, ok := p.pools.Load(key)
	if !ok {
		poolInterface, _ = p.pools.LoadOrStore(key, &sync.Pool{})
	}
	return poolInterface.(*sync.Pool)
}

// reserve accounts for numBytes, failing if it would exceed the budget.
func (p *Pool) reserve(numBytes int64) error {
	for {
		current := p.outstanding.Load()
		next := current + numBytes
		if p.limit > 0 && next > p.limit {
			klog.V(1).Infof("scratch: refusing %s, %s of %s in use",
				humanize.IBytes(uint64(numBytes)), humanize.IBytes(uint64(current)), humanize.IBytes(uint64(p.limit)))
			return errors.Wrapf(ErrResourceExhausted, "requested %s with %s already in use, limit is %s",
				humanize.IBytes(uint64(numBytes)), humanize.IBytes(uint64(current)), humanize.IBytes(uint64(p.limit)))
		}
		if p.outstanding.CompareAndSwap(current, next) {
			for {
				peak := p.peak.Load()
				if next <= peak || p.peak.CompareAndSwap(peak, next) {
					break
				}
			}
			return nil
		}
	}
}

// Buffer is a scratch buffer acquired from a Pool. Flat has exactly the requested length, and
// its contents are undefined.
type Buffer[T dtypes.Number] struct {
	Flat []T
	key  bufferPoolKey
}

// Acquire a buffer of length elements from the pool.
// It returns an error wrapping ErrResourceExhausted if the budget doesn't allow it.
func Acquire[T dtypes.Number](p *Pool, length int) (*Buffer[T], error) {
	dtype := dtypes.FromGenericsType[T]()
	key := bufferPoolKey{dtype: dtype, length: length}
	if err := p.reserve(int64(length * dtype.Size())); err != nil {
		return nil, err
	}
	if buf, ok := p.getBufferPool(key).Get().(*Buffer[T]); ok {
		return buf, nil
	}
	return &Buffer[T]{Flat: make([]T, length), key: key}, nil
}

// Release returns buf to the pool. buf must not be used afterwards.
func Release[T dtypes.Number](p *Pool, buf *Buffer[T]) {
	if buf == nil {
		return
	}
	p.outstanding.Add(-int64(buf.key.length * buf.key.dtype.Size()))
	p.getBufferPool(buf.key).Put(buf)
}

// BufAllocFn allocates a scratch slice of the given size.
// ref is an opaque handle used to release it with the matching BufReleaseFn.
type BufAllocFn[T any] func(size int) (ref any, data []T, err error)

// BufReleaseFn releases a buffer allocated with a BufAllocFn.
type BufReleaseFn func(ref any)

// AllocFns returns the allocation callbacks backed by p.
func AllocFns[T dtypes.Number](p *Pool) (BufAllocFn[T], BufReleaseFn) {
	alloc := func(size int) (ref any, data []T, err error) {
		buf, err := Acquire[T](p, size)
		if err != nil {
			return nil, nil, err
		}
		return buf, buf.Flat, nil
	}
	release := func(ref any) {
		Release(p, ref.(*Buffer[T]))
	}
	return alloc, release
}
