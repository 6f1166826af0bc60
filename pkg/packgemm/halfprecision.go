// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import (
	"github.com/gomlx/hostblas/pkg/core/dtypes/bfloat16"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/gomlx/hostblas/pkg/scratch"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// HalfPrecision is the set of storage-only types GEMMHalf multiplies.
type HalfPrecision interface {
	float16.Float16 | bfloat16.BFloat16
	Float32() float32
}

func halfFromFloat32[H HalfPrecision](x float32) H {
	var h H
	switch any(h).(type) {
	case float16.Float16:
		return any(float16.Fromfloat32(x)).(H)
	case bfloat16.BFloat16:
		return any(bfloat16.FromFloat32(x)).(H)
	}
	return h
}

// GEMMHalf computes C = alpha * op(A) x op(B) + beta * C for half precision matrices, accumulating in float32.
//
// A, B and C (unless beta is exactly zero) are widened into float32 scratch copies, multiplied with GEMM,
// and C is rounded back once per element. The copies count against cfg.Scratch. Shapes and beta follow GEMM.
func GEMMHalf[H HalfPrecision](alpha float32, a view.MatrixView[H], transA bool, b view.MatrixView[H], transB bool,
	beta float32, c view.MatrixView[H], cfg *Config) error {
	m, k, _, n := Dims(a, transA, b, transB)
	if m == 0 || k == 0 || n == 0 {
		return nil
	}
	if cfg == nil {
		cfg = &Config{}
	}
	pool := cfg.scratchPool()
	var buffers []*scratch.Buffer[float32]
	defer func() {
		for _, buf := range buffers {
			scratch.Release(pool, buf)
		}
	}()
	widen := func(src view.MatrixView[H], copyValues bool) (view.MatrixView[float32], error) {
		buf, err := scratch.Acquire[float32](pool, src.Rows*src.Cols)
		if err != nil {
			return view.MatrixView[float32]{}, err
		}
		buffers = append(buffers, buf)
		dst := view.Dense(buf.Flat, src.Rows, src.Cols, src.Layout)
		if copyValues {
			for i := range src.Rows {
				for j := range src.Cols {
					dst.Set(i, j, src.At(i, j).Float32())
				}
			}
		}
		return dst, nil
	}

	a32, err := widen(a, true)
	if err != nil {
		return errors.WithMessage(err, "packgemm.GEMMHalf: widening A")
	}
	b32, err := widen(b, true)
	if err != nil {
		return errors.WithMessage(err, "packgemm.GEMMHalf: widening B")
	}
	c32, err := widen(c, betaModeOf(beta) == betaGeneral)
	if err != nil {
		return errors.WithMessage(err, "packgemm.GEMMHalf: widening C")
	}
	if err := GEMM(alpha, a32, transA, b32, transB, beta, c32, cfg); err != nil {
		return err
	}
	for i := range m {
		for j := range n {
			c.Set(i, j, halfFromFloat32[H](c32.At(i, j)))
		}
	}
	return nil
}
