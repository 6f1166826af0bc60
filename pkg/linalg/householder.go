// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/gomlx/hostblas/pkg/scratch"
	"github.com/pkg/errors"
)

// The functions in this file are the building blocks of the tridiagonalization (Householder) and
// QL (tql2) steps used by the eigenvalue and SVD solvers.

// ScaledRank1Update computes mat += (alpha ∘ v1) * v2ᵀ, where v1 has mat.Rows elements and v2 mat.Cols.
func ScaledRank1Update[T dtypes.Number](b *Backend, mat view.MatrixView[T], alpha Scalar[T], v1, v2 view.VectorView[T]) error {
	const op = "linalg.ScaledRank1Update"
	if err := validateMatrices(op, mat); err != nil {
		return err
	}
	if err := validateVectors(op, v1, v2); err != nil {
		return err
	}
	if v1.Size != mat.Rows || v2.Size != mat.Cols {
		return errors.Wrapf(ErrDimensionMismatch, "%s: %dx%d matrix with vectors of sizes %d and %d",
			op, mat.Rows, mat.Cols, v1.Size, v2.Size)
	}
	scale := alpha.scale()
	return forEachLine(b, mat, func(line int) {
		offset, step, n := lineOf(mat, line)
		if mat.Layout == view.RowMajor {
			coef := scale(v1.At(line))
			for j := range n {
				mat.Data[offset] += coef * v2.At(j)
				offset += step
			}
			return
		}
		coef := scale(v2.At(line))
		for i := range n {
			mat.Data[offset] += v1.At(i) * coef
			offset += step
		}
	})
}

// BidiagPack copies the diagonal of A into D and its super-diagonal into S: D[i] = A[i, i] and S[i+1] = A[i, i+1].
// S[0] is not touched.
//
// The number of diagonal elements copied is min(D.Size, S.Size).
func BidiagPack[T dtypes.Number](b *Backend, A view.MatrixView[T], D, S view.VectorView[T]) error {
	const op = "linalg.BidiagPack"
	if err := validateMatrices(op, A); err != nil {
		return err
	}
	if err := validateVectors(op, D, S); err != nil {
		return err
	}
	size := min(D.Size, S.Size)
	if size > A.Rows || size > A.Cols {
		return errors.Wrapf(ErrDimensionMismatch, "%s: can't take %d diagonal elements from a %dx%d matrix",
			op, size, A.Rows, A.Cols)
	}
	if size == 0 {
		return nil
	}
	err := parallelItems(b, size*size, size-1, func(i int) {
		D.Set(i, A.At(i, i))
		S.Set(i+1, A.At(i, i+1))
	})
	if err != nil {
		return err
	}
	D.Set(size-1, A.At(size-1, size-1))
	return nil
}

// HouseUpdateALeft applies the Householder reflection P = I - 2*D*Dᵀ from the left, A = P * A,
// restricted to the rows after start: only D[start+1:] is used, and only rows start+1 and onwards change.
//
// D must have A.Rows elements.
func HouseUpdateALeft[T dtypes.Number](b *Backend, A view.MatrixView[T], D view.VectorView[T], start int) error {
	const op = "linalg.HouseUpdateALeft"
	if err := validateMatrices(op, A); err != nil {
		return err
	}
	if err := validateVectors(op, D); err != nil {
		return err
	}
	if D.Size != A.Rows || start < 0 {
		return errors.Wrapf(ErrDimensionMismatch, "%s: %dx%d matrix with a vector of size %d, start=%d",
			op, A.Rows, A.Cols, D.Size, start)
	}
	rowStart := start + 1
	if rowStart >= A.Rows {
		return nil
	}
	// Columns are updated independently.
	return parallelItems(b, A.Size(), A.Cols, func(col int) {
		var ss T
		for row := rowStart; row < A.Rows; row++ {
			ss += D.At(row) * A.At(row, col)
		}
		for row := rowStart; row < A.Rows; row++ {
			offset := A.Offset(row, col)
			A.Data[offset] -= 2 * D.At(row) * ss
		}
	})
}

// HouseUpdateARight applies the Householder reflection P = I - 2*D*Dᵀ from the right: A = A * P.
//
// D must have A.Cols elements.
func HouseUpdateARight[T dtypes.Number](b *Backend, A view.MatrixView[T], D view.VectorView[T]) error {
	const op = "linalg.HouseUpdateARight"
	if err := validateMatrices(op, A); err != nil {
		return err
	}
	if err := validateVectors(op, D); err != nil {
		return err
	}
	if D.Size != A.Cols {
		return errors.Wrapf(ErrDimensionMismatch, "%s: %dx%d matrix with a vector of size %d",
			op, A.Rows, A.Cols, D.Size)
	}
	return parallelItems(b, A.Size(), A.Rows, func(row int) {
		var ss T
		for col := range A.Cols {
			ss += D.At(col) * A.At(row, col)
		}
		for col := range A.Cols {
			offset := A.Offset(row, col)
			A.Data[offset] -= 2 * D.At(col) * ss
		}
	})
}

// HouseUpdateQL accumulates a Householder reflection into Q, Q = Q * (I - 2*D*Dᵀ), where the reflection
// is size x size and Q has size columns. Only the first size elements of D are used.
//
// It builds the reflection with ScaledRank1Update and multiplies with Prod, using scratch space for the
// reflection and a copy of Q.
func HouseUpdateQL[T dtypes.Number](b *Backend, Q view.MatrixView[T], D view.VectorView[T], size int) error {
	const op = "linalg.HouseUpdateQL"
	if err := validateMatrices(op, Q); err != nil {
		return err
	}
	if err := validateVectors(op, D); err != nil {
		return err
	}
	if Q.Cols != size || D.Size < size {
		return errors.Wrapf(ErrDimensionMismatch, "%s: %dx%d matrix with a vector of size %d, size=%d",
			op, Q.Rows, Q.Cols, D.Size, size)
	}
	if Q.IsEmpty() {
		return nil
	}

	pBuf, err := scratch.Acquire[T](b.scratch, size*size)
	if err != nil {
		return errors.WithMessage(err, op)
	}
	defer scratch.Release(b.scratch, pBuf)
	qBuf, err := scratch.Acquire[T](b.scratch, Q.Size())
	if err != nil {
		return errors.WithMessage(err, op)
	}
	defer scratch.Release(b.scratch, qBuf)

	P := view.Dense(pBuf.Flat, size, size, Q.Layout)
	if err := Assign(b, P, 0, false); err != nil {
		return err
	}
	if err := DiagonalAssign(b, P, 1); err != nil {
		return err
	}
	d := D.Sub(0, size)
	if err := ScaledRank1Update(b, P, S[T](2).Neg(), d, d); err != nil {
		return err
	}
	qCopy := view.Dense(qBuf.Flat, Q.Rows, Q.Cols, Q.Layout)
	if err := Am(b, qCopy, Q, S[T](1)); err != nil {
		return err
	}
	return Prod(b, 1, qCopy, false, P, false, 0, Q)
}

// GivensNext applies the sequence of Givens rotations of one tql2 iteration to the columns of Q:
// for i from m-1 down to l, columns i and i+1 are rotated by (c, s) = (tmp1[i], tmp2[i]):
//
//	Q[k, i+1] = s*Q[k, i] + c*Q[k, i+1]
//	Q[k, i]   = c*Q[k, i] - s*Q[k, i+1]
//
// Rows are independent, so they are processed in parallel.
func GivensNext[T dtypes.Number](b *Backend, Q view.MatrixView[T], tmp1, tmp2 view.VectorView[T], l, m int) error {
	const op = "linalg.GivensNext"
	if err := validateMatrices(op, Q); err != nil {
		return err
	}
	if err := validateVectors(op, tmp1, tmp2); err != nil {
		return err
	}
	if m <= l {
		return nil
	}
	if l < 0 || m >= Q.Cols || tmp1.Size < m || tmp2.Size < m {
		return errors.Wrapf(ErrDimensionMismatch, "%s: rotations [%d, %d) on a %dx%d matrix with vectors of sizes %d and %d",
			op, l, m, Q.Rows, Q.Cols, tmp1.Size, tmp2.Size)
	}
	return parallelItems(b, Q.Rows*Q.Rows, Q.Rows, func(k int) {
		for i := m - 1; i >= l; i-- {
			c, s := tmp1.At(i), tmp2.At(i)
			next, curr := Q.Offset(k, i+1), Q.Offset(k, i)
			h := Q.Data[next]
			Q.Data[next] = s*Q.Data[curr] + c*h
			Q.Data[curr] = c*Q.Data[curr] - s*h
		}
	})
}

// CopyVec copies part of a column (if copyCol) or of a row of A into the beginning of V:
// column colStart from row rowStart down, or row rowStart from column colStart on.
//
// V must have room for the copied elements.
func CopyVec[T dtypes.Number](b *Backend, A view.MatrixView[T], V view.VectorView[T], rowStart, colStart int, copyCol bool) error {
	const op = "linalg.CopyVec"
	if err := validateMatrices(op, A); err != nil {
		return err
	}
	if err := validateVectors(op, V); err != nil {
		return err
	}
	if rowStart < 0 || colStart < 0 || rowStart >= A.Rows || colStart >= A.Cols {
		return errors.Wrapf(ErrDimensionMismatch, "%s: start (%d, %d) outside of a %dx%d matrix",
			op, rowStart, colStart, A.Rows, A.Cols)
	}
	count := A.Cols - colStart
	if copyCol {
		count = A.Rows - rowStart
	}
	if V.Size < count {
		return errors.Wrapf(ErrDimensionMismatch, "%s: %d elements don't fit a vector of size %d", op, count, V.Size)
	}
	return parallelItems(b, A.Size(), count, func(i int) {
		if copyCol {
			V.Set(i, A.At(rowStart+i, colStart))
		} else {
			V.Set(i, A.At(rowStart, colStart+i))
		}
	})
}
