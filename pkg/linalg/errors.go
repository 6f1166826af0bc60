// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/gomlx/hostblas/pkg/scratch"
	"github.com/pkg/errors"
)

var (
	// ErrLayoutMismatch is returned when the operands of an element-wise operation have different layouts.
	// It's a configuration error: convert one of the operands first (see Trans).
	ErrLayoutMismatch = errors.New("operands with mixed layouts are not supported")

	// ErrDimensionMismatch is returned when the operands' dimensions are incompatible.
	ErrDimensionMismatch = errors.New("incompatible dimensions")

	// ErrInvalidView is returned when a view's geometry doesn't fit its buffer.
	ErrInvalidView = errors.New("invalid view")

	// ErrResourceExhausted is returned when scratch space can't be allocated.
	ErrResourceExhausted = scratch.ErrResourceExhausted
)

// validateMatrices checks the geometry of each operand.
func validateMatrices[T any](op string, matrices ...view.MatrixView[T]) error {
	for i, m := range matrices {
		if err := m.Validate(); err != nil {
			return errors.Wrapf(ErrInvalidView, "%s: matrix operand #%d: %v", op, i, err)
		}
	}
	return nil
}

func validateVectors[T any](op string, vectors ...view.VectorView[T]) error {
	for i, v := range vectors {
		if err := v.Validate(); err != nil {
			return errors.Wrapf(ErrInvalidView, "%s: vector operand #%d: %v", op, i, err)
		}
	}
	return nil
}

// sameLayout requires all matrices to share dst's layout.
func sameLayout[T any](op string, dst view.MatrixView[T], others ...view.MatrixView[T]) error {
	for _, m := range others {
		if m.Layout != dst.Layout {
			return errors.Wrapf(ErrLayoutMismatch, "%s: destination is %s, operand is %s", op, dst.Layout, m.Layout)
		}
	}
	return nil
}

// sameShape requires all matrices to have dst's dimensions.
func sameShape[T any](op string, dst view.MatrixView[T], others ...view.MatrixView[T]) error {
	for _, m := range others {
		if m.Rows != dst.Rows || m.Cols != dst.Cols {
			return errors.Wrapf(ErrDimensionMismatch, "%s: destination is %dx%d, operand is %dx%d",
				op, dst.Rows, dst.Cols, m.Rows, m.Cols)
		}
	}
	return nil
}
