// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/hostblas/internal/workerspool"
	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/gomlx/hostblas/pkg/scratch"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// betaMode selects how the first contribution to C is written.
type betaMode int

const (
	// betaGeneral: C = beta*C + alpha*tile on the first k-block.
	betaGeneral betaMode = iota

	// betaZero: C = alpha*tile on the first k-block, C is never read. Any garbage (NaN included) is discarded.
	betaZero
)

func betaModeOf[T dtypes.Number](beta T) betaMode {
	if beta > 0 || beta < 0 {
		return betaGeneral
	}
	if beta != beta {
		// NaN: it must propagate into C.
		return betaGeneral
	}
	return betaZero
}

// Dims returns the sizes (m, k, n) of the product op(A) x op(B).
func Dims[T any](a view.MatrixView[T], transA bool, b view.MatrixView[T], transB bool) (m, kA, kB, n int) {
	m, kA = a.Rows, a.Cols
	if transA {
		m, kA = kA, m
	}
	kB, n = b.Rows, b.Cols
	if transB {
		kB, n = n, kB
	}
	return
}

// GEMM computes C = alpha * op(A) x op(B) + beta * C, where op(X) is X or its transpose.
//
// op(A) must be m x k, op(B) k x n and C m x n. The shapes are not validated here: callers
// (see package linalg) are expected to do it. If any of m, k or n is 0, C is left untouched.
//
// If beta is exactly zero, C is only written, so it may hold garbage. A NaN beta is not zero: C is read
// and scaled, so the NaN propagates into every element of C.
//
// C must not overlap with A or B. It returns an error if scratch space can't be allocated, in which case
// the contents of C are undefined.
func GEMM[T dtypes.Number](alpha T, a view.MatrixView[T], transA bool, b view.MatrixView[T], transB bool,
	beta T, c view.MatrixView[T], cfg *Config) error {
	m, k, _, n := Dims(a, transA, b, transB)
	if m == 0 || k == 0 || n == 0 {
		return nil
	}
	if cfg == nil {
		cfg = &Config{}
	}
	kernel, err := NewKernel[T](cfg.Kernel)
	if err != nil {
		return err
	}
	mr, nr := kernel.Shape()
	numWorkers := cfg.Pool.AdjustedMaxParallelism()
	plan := PlanBlocks(m, k, n, dtypes.SizeOf[T](), mr, nr, cfg.Caches)
	plan = SplitForWorkers(plan, n, numWorkers)
	if err := plan.Validate(); err != nil {
		return errors.WithMessagef(err, "packgemm.GEMM(m=%d, k=%d, n=%d)", m, k, n)
	}
	if klog.V(2).Enabled() {
		perWorker := (plan.Mc*plan.Kc + plan.Kc*plan.Nc + plan.Mr*plan.Nr) * dtypes.SizeOf[T]()
		klog.Infof("packgemm.GEMM[%s](m=%d, k=%d, n=%d): kernel=%s, plan=%s, workers=%d, scratch/worker=%s",
			dtypes.FromGenericsType[T](), m, k, n, kernel.Name(), plan, numWorkers, humanize.IBytes(uint64(perWorker)))
	}

	g := &gemmCall[T]{
		alpha: alpha, beta: beta, betaMode: betaModeOf(beta),
		a: a, transA: transA, b: b, transB: transB, c: c,
		m: m, k: k, n: n,
		plan:   plan,
		kernel: kernel,
	}
	alloc, release := scratch.AllocFns[T](cfg.scratchPool())
	numNBlocks := (n + plan.Nc - 1) / plan.Nc
	return workerspool.ParallelFor(cfg.Pool, numNBlocks,
		func(worker int) (*scratch.Arena[T], error) {
			return scratch.NewArena(alloc, release), nil
		},
		func(arena *scratch.Arena[T]) { arena.Reset() },
		func(arena *scratch.Arena[T], nBlock int) error {
			defer arena.Reset()
			return g.nBlock(arena, nBlock)
		})
}

// gemmCall holds the parameters of one GEMM call, shared read-only by the workers.
type gemmCall[T dtypes.Number] struct {
	alpha, beta T
	betaMode    betaMode

	a, b, c        view.MatrixView[T]
	transA, transB bool
	m, k, n        int

	plan   BlockingPlan
	kernel MicroKernel[T]
}

// nBlock computes the columns [nBlock*Nc, (nBlock+1)*Nc) of C. Only this worker writes them.
func (g *gemmCall[T]) nBlock(arena *scratch.Arena[T], nBlock int) error {
	plan := g.plan
	colStart := nBlock * plan.Nc
	ncValid := min(plan.Nc, g.n-colStart)
	mcMax := min(plan.Mc, g.m)

	packedB, err := arena.Get(plan.Kc * ncValid)
	if err != nil {
		return errors.WithMessagef(err, "allocating packed B panel (%dx%d)", plan.Kc, ncValid)
	}
	packedA, err := arena.Get(mcMax * plan.Kc)
	if err != nil {
		return errors.WithMessagef(err, "allocating packed A panel (%dx%d)", mcMax, plan.Kc)
	}
	acc, err := arena.Get(plan.Mr * plan.Nr)
	if err != nil {
		return errors.WithMessagef(err, "allocating accumulator (%dx%d)", plan.Mr, plan.Nr)
	}

	// The k-blocks must be visited in order: the first one applies beta.
	for kStart := 0; kStart < g.k; kStart += plan.Kc {
		kcValid := min(plan.Kc, g.k-kStart)
		firstKBlock := kStart == 0
		PackB(packedB, g.b, g.transB, kStart, colStart, kcValid, ncValid, plan.Nr)

		for rowStart := 0; rowStart < g.m; rowStart += plan.Mc {
			mcValid := min(plan.Mc, g.m-rowStart)
			PackA(packedA, g.a, g.transA, rowStart, kStart, mcValid, kcValid, plan.Mr)

			for jr := 0; jr < ncValid; jr += plan.Nr {
				cols := min(plan.Nr, ncValid-jr)
				bSliver := packedB[jr*kcValid : (jr+cols)*kcValid]
				for ir := 0; ir < mcValid; ir += plan.Mr {
					rows := min(plan.Mr, mcValid-ir)
					aSliver := packedA[ir*kcValid : (ir+rows)*kcValid]
					tile := acc[:rows*cols]
					clear(tile)
					g.kernel.Compute(aSliver, bSliver, tile, kcValid, rows, cols)
					g.writeBack(tile, rowStart+ir, colStart+jr, rows, cols, firstKBlock)
				}
			}
		}
	}
	return nil
}

// writeBack scales the rows x cols tile and stores it in C at (row, col).
func (g *gemmCall[T]) writeBack(tile []T, row, col, rows, cols int, firstKBlock bool) {
	c := g.c
	data := c.Data
	rowStep, colStep := c.RowStep(), c.ColStep()
	rowBase := c.Offset(row, col)
	alpha, beta := g.alpha, g.beta
	switch {
	case firstKBlock && g.betaMode == betaZero:
		for i := range rows {
			idx := rowBase + i*rowStep
			for _, v := range tile[i*cols : i*cols+cols] {
				data[idx] = alpha * v
				idx += colStep
			}
		}
	case firstKBlock:
		for i := range rows {
			idx := rowBase + i*rowStep
			for _, v := range tile[i*cols : i*cols+cols] {
				data[idx] = beta*data[idx] + alpha*v
				idx += colStep
			}
		}
	default:
		for i := range rows {
			idx := rowBase + i*rowStep
			for _, v := range tile[i*cols : i*cols+cols] {
				data[idx] += alpha * v
				idx += colStep
			}
		}
	}
}
