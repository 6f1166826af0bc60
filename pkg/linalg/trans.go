// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/gomlx/hostblas/pkg/core/dtypes/bfloat16"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// transBlockSize is the side of the square blocks Trans copies at once, so both the
// rows read and the columns written stay in cache.
const transBlockSize = 64

// Trans writes the transpose of src into dst: dst[j, i] = src[i, j].
//
// dst must be src.Cols x src.Rows, and must not overlap src. Layouts may differ.
func Trans[T any](b *Backend, dst, src view.MatrixView[T]) error {
	const op = "linalg.Trans"
	if err := validateMatrices(op, dst, src); err != nil {
		return err
	}
	if dst.Rows != src.Cols || dst.Cols != src.Rows {
		return errors.Wrapf(ErrDimensionMismatch, "%s: transpose of %dx%d into %dx%d", op, src.Rows, src.Cols, dst.Rows, dst.Cols)
	}
	if src.IsEmpty() {
		return nil
	}
	numBlockRows := (src.Rows + transBlockSize - 1) / transBlockSize
	numBlockCols := (src.Cols + transBlockSize - 1) / transBlockSize
	srcColStep, dstRowStep := src.ColStep(), dst.RowStep()
	return parallelItems(b, src.Size(), numBlockRows, func(blockRow int) {
		rowStart := blockRow * transBlockSize
		rowEnd := min(rowStart+transBlockSize, src.Rows)
		for blockCol := range numBlockCols {
			colStart := blockCol * transBlockSize
			colEnd := min(colStart+transBlockSize, src.Cols)
			for i := rowStart; i < rowEnd; i++ {
				s := src.Offset(i, colStart)
				d := dst.Offset(colStart, i)
				for range colEnd - colStart {
					dst.Data[d] = src.Data[s]
					s += srcColStep
					d += dstRowStep
				}
			}
		}
	})
}

// mapMatrix computes dst[i, j] = fn(src[i, j]) for operands of possibly different types and layouts.
func mapMatrix[D, S any](b *Backend, op string, dst view.MatrixView[D], src view.MatrixView[S], fn func(S) D) error {
	if err := dst.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidView, "%s: destination: %v", op, err)
	}
	if err := src.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidView, "%s: source: %v", op, err)
	}
	if dst.Rows != src.Rows || dst.Cols != src.Cols {
		return errors.Wrapf(ErrDimensionMismatch, "%s: %dx%d into %dx%d", op, src.Rows, src.Cols, dst.Rows, dst.Cols)
	}
	return forEachLine(b, dst, func(line int) {
		d, dStep, n := lineOf(dst, line)
		if src.Layout == dst.Layout {
			s, sStep, _ := lineOf(src, line)
			for range n {
				dst.Data[d] = fn(src.Data[s])
				d += dStep
				s += sStep
			}
			return
		}
		for i := range n {
			row, col := lineCoords(dst.Layout, line, i)
			dst.Data[d] = fn(src.At(row, col))
			d += dStep
		}
	})
}

// Convert copies src into dst converting the element type. Layouts may differ.
func Convert[D, S dtypes.Number](b *Backend, dst view.MatrixView[D], src view.MatrixView[S]) error {
	return mapMatrix(b, "linalg.Convert", dst, src, func(x S) D { return D(x) })
}

// ConvertToFloat16 rounds src into the half precision dst.
func ConvertToFloat16[S dtypes.Float](b *Backend, dst view.MatrixView[float16.Float16], src view.MatrixView[S]) error {
	return mapMatrix(b, "linalg.ConvertToFloat16", dst, src, func(x S) float16.Float16 {
		return float16.Fromfloat32(float32(x))
	})
}

// ConvertFromFloat16 widens the half precision src into dst.
func ConvertFromFloat16[D dtypes.Float](b *Backend, dst view.MatrixView[D], src view.MatrixView[float16.Float16]) error {
	return mapMatrix(b, "linalg.ConvertFromFloat16", dst, src, func(x float16.Float16) D {
		return D(x.Float32())
	})
}

// ConvertToBFloat16 rounds src into the bfloat16 dst.
func ConvertToBFloat16[S dtypes.Float](b *Backend, dst view.MatrixView[bfloat16.BFloat16], src view.MatrixView[S]) error {
	return mapMatrix(b, "linalg.ConvertToBFloat16", dst, src, func(x S) bfloat16.BFloat16 {
		return bfloat16.FromFloat32(float32(x))
	})
}

// ConvertFromBFloat16 widens the bfloat16 src into dst.
func ConvertFromBFloat16[D dtypes.Float](b *Backend, dst view.MatrixView[D], src view.MatrixView[bfloat16.BFloat16]) error {
	return mapMatrix(b, "linalg.ConvertFromBFloat16", dst, src, func(x bfloat16.BFloat16) D {
		return D(x.Float32())
	})
}
