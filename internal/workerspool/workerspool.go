// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool controls how much parallelism the linear algebra kernels use, and
// implements the fork-join primitives they are built on: Run and ParallelFor.
package workerspool

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Pool holds the parallelism configuration shared by all operations of a backend.
//
// It's safe for concurrent use: independent operations may fork their own workers at the same time.
type Pool struct {
	// maxParallelism is a soft target on the number of workers per operation.
	maxParallelism int

	// numRunning counts the worker goroutines currently alive, across all operations.
	numRunning atomic.Int32
}

// New returns a new Pool with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	return &Pool{maxParallelism: runtime.NumCPU()}
}

// NewWithParallelism returns a Pool with the given maximum parallelism. See SetMaxParallelism.
func NewWithParallelism(maxParallelism int) *Pool {
	return &Pool{maxParallelism: maxParallelism}
}

// IsEnabled returns whether parallelism is enabled (maxParallelism != 0).
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// MaxParallelism returns the configured parallelism.
// If 0 parallelism is disabled. If -1 parallelism is unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism.
//
// It should only be changed before any operation runs. If changed during an execution
// the behavior is undefined.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.maxParallelism = maxParallelism
}

// AdjustedMaxParallelism returns the number of workers an operation should fork:
// runtime.NumCPU() if unlimited, 1 if disabled, MaxParallelism otherwise.
func (w *Pool) AdjustedMaxParallelism() int {
	if w == nil {
		return 1
	}
	if w.maxParallelism < 0 {
		return runtime.NumCPU()
	}
	if w.maxParallelism == 0 {
		return 1
	}
	return w.maxParallelism
}

// Running returns the number of worker goroutines currently alive.
func (w *Pool) Running() int {
	return int(w.numRunning.Load())
}

// Run executes task on numWorkers workers and waits for all of them to finish.
//
// The first error returned (or an error panicked) by any worker cancels the context passed to the
// others and is returned. Panics with values that are not errors are not caught.
//
// If numWorkers <= 1 the task is executed inline by the caller.
func (w *Pool) Run(numWorkers int, task func(ctx context.Context, worker int) error) error {
	if numWorkers <= 1 {
		return runCatching(context.Background(), 0, task)
	}
	g, ctx := errgroup.WithContext(context.Background())
	for worker := range numWorkers {
		if w != nil {
			w.numRunning.Add(1)
		}
		g.Go(func() error {
			if w != nil {
				defer w.numRunning.Add(-1)
			}
			return runCatching(ctx, worker, task)
		})
	}
	return g.Wait()
}

func runCatching(ctx context.Context, worker int, task func(ctx context.Context, worker int) error) error {
	var err error
	panicErr := exceptions.TryCatch[error](func() { err = task(ctx, worker) })
	if panicErr != nil {
		return errors.WithMessagef(panicErr, "worker #%d panicked", worker)
	}
	return err
}
