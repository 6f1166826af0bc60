// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"context"

	"github.com/gomlx/hostblas/internal/workerspool"
	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/gomlx/hostblas/pkg/packgemm"
	"github.com/gomlx/hostblas/pkg/scratch"
	"github.com/pkg/errors"
)

// Prod computes C = alpha * op(A) * op(B) + beta * C, where op(X) is X or its transpose.
//
// op(A) must be m x k, op(B) k x n and C m x n. Each of A, B and C can have any layout.
// If beta is zero, C is only written; a NaN beta propagates into C. C must not overlap A or B.
func Prod[T dtypes.Number](b *Backend, alpha T, A view.MatrixView[T], transA bool, B view.MatrixView[T], transB bool,
	beta T, C view.MatrixView[T]) error {
	const op = "linalg.Prod"
	if err := checkProd(op, A, transA, B, transB, C); err != nil {
		return err
	}
	if err := packgemm.GEMM(alpha, A, transA, B, transB, beta, C, b.gemmConfig()); err != nil {
		return errors.WithMessage(err, op)
	}
	return nil
}

// ProdHalf is Prod for Float16 or BFloat16 matrices. The products are accumulated in float32 and
// C is rounded to half precision once.
func ProdHalf[H packgemm.HalfPrecision](b *Backend, alpha float32, A view.MatrixView[H], transA bool,
	B view.MatrixView[H], transB bool, beta float32, C view.MatrixView[H]) error {
	const op = "linalg.ProdHalf"
	if err := checkProd(op, A, transA, B, transB, C); err != nil {
		return err
	}
	if err := packgemm.GEMMHalf(alpha, A, transA, B, transB, beta, C, b.gemmConfig()); err != nil {
		return errors.WithMessage(err, op)
	}
	return nil
}

func checkProd[T any](op string, A view.MatrixView[T], transA bool, B view.MatrixView[T], transB bool, C view.MatrixView[T]) error {
	if err := validateMatrices(op, A, B, C); err != nil {
		return err
	}
	m, kA, kB, n := packgemm.Dims(A, transA, B, transB)
	if kA != kB || C.Rows != m || C.Cols != n {
		return errors.Wrapf(ErrDimensionMismatch, "%s: op(A) is %dx%d, op(B) is %dx%d and C is %dx%d",
			op, m, kA, kB, n, C.Rows, C.Cols)
	}
	return nil
}

// ProdMatVec computes y = op(A) * x, where op(A) is A or its transpose if trans is set.
// y must not overlap x.
func ProdMatVec[T dtypes.Number](b *Backend, A view.MatrixView[T], trans bool, x, y view.VectorView[T]) error {
	const op = "linalg.ProdMatVec"
	if err := validateMatrices(op, A); err != nil {
		return err
	}
	if err := validateVectors(op, x, y); err != nil {
		return err
	}
	rows, cols := A.Rows, A.Cols
	if trans {
		rows, cols = cols, rows
	}
	if x.Size != cols || y.Size != rows {
		return errors.Wrapf(ErrDimensionMismatch, "%s: op(A) is %dx%d, x has %d elements and y %d",
			op, rows, cols, x.Size, y.Size)
	}
	if rows == 0 {
		return nil
	}
	if (A.Layout == view.RowMajor) != trans {
		// Each y[i] is the dot product of a line of A with x.
		return parallelItems(b, A.Size(), rows, func(i int) {
			start, step, n := lineOf(A, i)
			var sum T
			for j := range n {
				sum += A.Data[start] * x.At(j)
				start += step
			}
			y.Set(i, sum)
		})
	}
	return prodMatVecAxpy(b, A, x, y)
}

// prodMatVecAxpy handles the orientation where the lines of A are the columns of op(A): y = sum_l x[l] * line_l.
// Each worker accumulates its range of lines into its own buffer, and the buffers are added in worker order,
// so the result only depends on the number of workers.
func prodMatVecAxpy[T dtypes.Number](b *Backend, A view.MatrixView[T], x, y view.VectorView[T]) error {
	pool := b.workersFor(A.Size())
	ranges := workerspool.Partition(numLines(A), pool.AdjustedMaxParallelism())
	if len(ranges) == 0 {
		for i := range y.Size {
			y.Set(i, 0)
		}
		return nil
	}
	partials := make([]*scratch.Buffer[T], len(ranges))
	defer func() {
		for _, buf := range partials {
			scratch.Release(b.scratch, buf)
		}
	}()
	err := pool.Run(len(ranges), func(_ context.Context, worker int) error {
		buf, err := scratch.Acquire[T](b.scratch, y.Size)
		if err != nil {
			return err
		}
		partials[worker] = buf
		acc := buf.Flat
		clear(acc)
		for line := ranges[worker].Start; line < ranges[worker].End; line++ {
			xl := x.At(line)
			start, step, n := lineOf(A, line)
			for i := range n {
				acc[i] += xl * A.Data[start]
				start += step
			}
		}
		return nil
	})
	if err != nil {
		return errors.WithMessage(err, "linalg.ProdMatVec")
	}
	for i := range y.Size {
		var sum T
		for _, buf := range partials {
			sum += buf.Flat[i]
		}
		y.Set(i, sum)
	}
	return nil
}
