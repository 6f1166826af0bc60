// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"github.com/gomlx/hostblas/internal/workerspool"
	"github.com/gomlx/hostblas/pkg/core/view"
)

// A line is a row of a row-major matrix or a column of a column-major one: walking
// lines in order visits the buffer in memory order.

func numLines[T any](m view.MatrixView[T]) int {
	if m.Layout == view.RowMajor {
		return m.Rows
	}
	return m.Cols
}

// lineOf returns the offset of the first element of the line, the step between its elements, and its length.
func lineOf[T any](m view.MatrixView[T], line int) (start, step, length int) {
	if m.Layout == view.RowMajor {
		return m.Offset(line, 0), m.ColStep(), m.Cols
	}
	return m.Offset(0, line), m.RowStep(), m.Rows
}

// lineCoords returns the logical (row, col) of element i of the line.
func lineCoords(layout view.Layout, line, i int) (row, col int) {
	if layout == view.RowMajor {
		return line, i
	}
	return i, line
}

// forEachLine calls fn for every line of m, in parallel if m is large enough.
// Each line is processed by exactly one worker.
func forEachLine[T any](b *Backend, m view.MatrixView[T], fn func(line int)) error {
	if m.IsEmpty() {
		return nil
	}
	return parallelItems(b, m.Size(), numLines(m), fn)
}

// parallelItems calls fn for items [0, numItems), in parallel if the work (numElements) is large enough.
func parallelItems(b *Backend, numElements, numItems int, fn func(item int)) error {
	return workerspool.ParallelFor[struct{}](b.workersFor(numElements), numItems, nil, nil,
		func(_ struct{}, item int) error {
			fn(item)
			return nil
		})
}
