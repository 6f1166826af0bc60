// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package packgemm implements the general matrix multiplication C = alpha * op(A) x op(B) + beta * C,
// using the blocked "packed" algorithm of GotoBLAS/BLIS:
//
//   - The n dimension is split in blocks of Nc columns, distributed among workers.
//   - For each Nc block, the k (contracting) dimension is walked in blocks of Kc, in order: the block
//     Kc x Nc of op(B) is packed into contiguous slivers of Nr columns.
//   - For each Kc block, the m dimension is walked in blocks of Mc: the block Mc x Kc of op(A) is packed
//     into slivers of Mr rows.
//   - Each pair of slivers is multiplied by a MicroKernel into an Mr x Nr accumulator, which is then
//     scaled and written back into C.
//
// Matrices are given as view.MatrixView, with any layout and strides: packing resolves both layout
// and transposition, so the micro-kernels only see contiguous data.
package packgemm

import (
	"github.com/gomlx/hostblas/internal/workerspool"
	"github.com/gomlx/hostblas/pkg/scratch"
)

// Config for GEMM calls.
type Config struct {
	// Pool sets the parallelism. If nil, GEMM runs sequentially.
	Pool *workerspool.Pool

	// Scratch provides the packing buffers. If nil a process-wide unlimited pool is used.
	Scratch *scratch.Pool

	// Caches used to derive the block sizes. If zero, DefaultCacheSizes is used.
	Caches CacheSizes

	// Kernel is the name of the micro-kernel variant. If empty, DefaultKernel[T]() is used.
	Kernel string
}

var defaultScratch = scratch.New(0)

// DefaultConfig uses all CPUs, unlimited scratch space, and the default kernel.
func DefaultConfig() *Config {
	return &Config{Pool: workerspool.New(), Scratch: defaultScratch}
}

func (cfg *Config) scratchPool() *scratch.Pool {
	if cfg.Scratch == nil {
		return defaultScratch
	}
	return cfg.Scratch
}
