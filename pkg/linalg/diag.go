// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/pkg/errors"
)

// diagStart returns the first element of the k-th diagonal: k > 0 is above the main diagonal, k < 0 below.
func diagStart(k int) (row, col int) {
	if k >= 0 {
		return 0, k
	}
	return -k, 0
}

func checkDiag[T any](op string, mat view.MatrixView[T], k int, vec view.VectorView[T]) (row, col int, err error) {
	if err = validateMatrices(op, mat); err != nil {
		return
	}
	if err = validateVectors(op, vec); err != nil {
		return
	}
	row, col = diagStart(k)
	if row+vec.Size > mat.Rows || col+vec.Size > mat.Cols {
		err = errors.Wrapf(ErrDimensionMismatch, "%s: diagonal %d of a %dx%d matrix can't hold %d elements",
			op, k, mat.Rows, mat.Cols, vec.Size)
	}
	return
}

// DiagFromVector zeroes mat and sets its k-th diagonal to vec.
// k > 0 selects a diagonal above the main one, k < 0 below.
func DiagFromVector[T dtypes.Number](b *Backend, vec view.VectorView[T], k int, mat view.MatrixView[T]) error {
	const op = "linalg.DiagFromVector"
	row, col, err := checkDiag(op, mat, k, vec)
	if err != nil {
		return err
	}
	if err := Assign(b, mat, 0, false); err != nil {
		return err
	}
	for i := range vec.Size {
		mat.Set(row+i, col+i, vec.At(i))
	}
	return nil
}

// DiagToVector copies the k-th diagonal of mat into vec. See DiagFromVector.
func DiagToVector[T dtypes.Number](b *Backend, mat view.MatrixView[T], k int, vec view.VectorView[T]) error {
	const op = "linalg.DiagToVector"
	row, col, err := checkDiag(op, mat, k, vec)
	if err != nil {
		return err
	}
	for i := range vec.Size {
		vec.Set(i, mat.At(row+i, col+i))
	}
	return nil
}

// Row copies row i of mat into vec, which must have mat.Cols elements.
func Row[T dtypes.Number](b *Backend, mat view.MatrixView[T], i int, vec view.VectorView[T]) error {
	const op = "linalg.Row"
	if err := validateMatrices(op, mat); err != nil {
		return err
	}
	if err := validateVectors(op, vec); err != nil {
		return err
	}
	if i < 0 || i >= mat.Rows || vec.Size != mat.Cols {
		return errors.Wrapf(ErrDimensionMismatch, "%s: row %d of a %dx%d matrix into a vector of size %d",
			op, i, mat.Rows, mat.Cols, vec.Size)
	}
	for j := range vec.Size {
		vec.Set(j, mat.At(i, j))
	}
	return nil
}

// Column copies column j of mat into vec, which must have mat.Rows elements.
func Column[T dtypes.Number](b *Backend, mat view.MatrixView[T], j int, vec view.VectorView[T]) error {
	const op = "linalg.Column"
	if err := validateMatrices(op, mat); err != nil {
		return err
	}
	if err := validateVectors(op, vec); err != nil {
		return err
	}
	if j < 0 || j >= mat.Cols || vec.Size != mat.Rows {
		return errors.Wrapf(ErrDimensionMismatch, "%s: column %d of a %dx%d matrix into a vector of size %d",
			op, j, mat.Rows, mat.Cols, vec.Size)
	}
	for i := range vec.Size {
		vec.Set(i, mat.At(i, j))
	}
	return nil
}
