// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package view provides strided, non-owning views over flat buffers: MatrixView and VectorView.
//
// A view never allocates and never copies. It maps logical coordinates to an offset in a
// borrowed []T, and the caller guarantees the buffer outlives the view.
//
// The physical buffer of a matrix has InternalRows x InternalCols elements (padded extents),
// laid out in row-major or column-major order. A view selects a Rows x Cols window of it, starting
// at (StartRow, StartCol) and stepping StrideRow/StrideCol physical rows/columns per logical one.
package view

import (
	"fmt"

	"github.com/pkg/errors"
)

// MatrixView is a strided window into a flat buffer holding a 2D matrix.
type MatrixView[T any] struct {
	Data []T

	StartRow, StartCol   int
	StrideRow, StrideCol int
	Rows, Cols           int

	// InternalRows and InternalCols are the physical (possibly padded) extents of Data.
	InternalRows, InternalCols int

	Layout Layout
}

// Dense returns a view covering a rows x cols matrix stored contiguously in data.
func Dense[T any](data []T, rows, cols int, layout Layout) MatrixView[T] {
	return MatrixView[T]{
		Data:         data,
		StrideRow:    1,
		StrideCol:    1,
		Rows:         rows,
		Cols:         cols,
		InternalRows: rows,
		InternalCols: cols,
		Layout:       layout,
	}
}

// Padded returns a view of rows x cols inside a buffer with internal extents internalRows x internalCols.
func Padded[T any](data []T, rows, cols, internalRows, internalCols int, layout Layout) MatrixView[T] {
	m := Dense(data, rows, cols, layout)
	m.InternalRows, m.InternalCols = internalRows, internalCols
	return m
}

// Sub returns the contiguous sub-range of rows x cols starting at logical (row, col) of m.
func (m MatrixView[T]) Sub(row, col, rows, cols int) MatrixView[T] {
	return m.Slice(row, col, 1, 1, rows, cols)
}

// Slice returns a strided sub-view: logical (i, j) of the result is logical
// (row + i*rowStride, col + j*colStride) of m.
func (m MatrixView[T]) Slice(row, col, rowStride, colStride, rows, cols int) MatrixView[T] {
	s := m
	s.StartRow = m.StartRow + row*m.StrideRow
	s.StartCol = m.StartCol + col*m.StrideCol
	s.StrideRow = m.StrideRow * rowStride
	s.StrideCol = m.StrideCol * colStride
	s.Rows, s.Cols = rows, cols
	return s
}

// Offset returns the position in Data of the logical element (row, col). No bounds are checked.
func (m MatrixView[T]) Offset(row, col int) int {
	r := m.StartRow + row*m.StrideRow
	c := m.StartCol + col*m.StrideCol
	if m.Layout == RowMajor {
		return r*m.InternalCols + c
	}
	return r + c*m.InternalRows
}

// RowStep is the distance in Data between logical rows i and i+1 of the same column.
func (m MatrixView[T]) RowStep() int {
	if m.Layout == RowMajor {
		return m.StrideRow * m.InternalCols
	}
	return m.StrideRow
}

// ColStep is the distance in Data between logical columns j and j+1 of the same row.
func (m MatrixView[T]) ColStep() int {
	if m.Layout == RowMajor {
		return m.StrideCol
	}
	return m.StrideCol * m.InternalRows
}

// At returns the logical element (row, col).
func (m MatrixView[T]) At(row, col int) T {
	return m.Data[m.Offset(row, col)]
}

// Set writes the logical element (row, col).
func (m MatrixView[T]) Set(row, col int, v T) {
	m.Data[m.Offset(row, col)] = v
}

// IsEmpty returns whether the view has no elements.
func (m MatrixView[T]) IsEmpty() bool {
	return m.Rows == 0 || m.Cols == 0
}

// Size is the number of logical elements.
func (m MatrixView[T]) Size() int {
	return m.Rows * m.Cols
}

// IsContiguous returns whether the logical elements occupy a single unpadded run of Data in layout order.
func (m MatrixView[T]) IsContiguous() bool {
	if m.StrideRow != 1 || m.StrideCol != 1 || m.StartRow != 0 || m.StartCol != 0 {
		return false
	}
	if m.Layout == RowMajor {
		return m.Cols == m.InternalCols
	}
	return m.Rows == m.InternalRows
}

// String implements fmt.Stringer, describing the geometry (not the contents).
func (m MatrixView[T]) String() string {
	return fmt.Sprintf("MatrixView[%T](%dx%d, %s, start=(%d,%d), stride=(%d,%d), internal=%dx%d)",
		*new(T), m.Rows, m.Cols, m.Layout, m.StartRow, m.StartCol, m.StrideRow, m.StrideCol, m.InternalRows, m.InternalCols)
}

// Validate checks the geometry of the view against its buffer.
//
// It's meant for API boundaries; the compute kernels assume a valid view.
func (m MatrixView[T]) Validate() error {
	if m.Layout != RowMajor && m.Layout != ColumnMajor {
		return errors.Errorf("invalid layout %d", m.Layout)
	}
	if m.Rows < 0 || m.Cols < 0 || m.StartRow < 0 || m.StartCol < 0 || m.InternalRows < 0 || m.InternalCols < 0 {
		return errors.Errorf("negative extents in %s", m)
	}
	if m.IsEmpty() {
		return nil
	}
	if m.StrideRow <= 0 || m.StrideCol <= 0 {
		return errors.Errorf("strides must be positive in %s", m)
	}
	lastRow := m.StartRow + (m.Rows-1)*m.StrideRow
	lastCol := m.StartCol + (m.Cols-1)*m.StrideCol
	if lastRow >= m.InternalRows || lastCol >= m.InternalCols {
		return errors.Errorf("view addresses physical element (%d, %d) outside of internal extents %dx%d in %s",
			lastRow, lastCol, m.InternalRows, m.InternalCols, m)
	}
	if last := m.Offset(m.Rows-1, m.Cols-1); last >= len(m.Data) {
		return errors.Errorf("view addresses offset %d but buffer has only %d elements in %s", last, len(m.Data), m)
	}
	return nil
}

// Transposed returns a view of the transpose of m, sharing the same data.
//
// The returned view has the opposite layout with swapped extents, which maps to the same physical elements.
func (m MatrixView[T]) Transposed() MatrixView[T] {
	t := m
	t.StartRow, t.StartCol = m.StartCol, m.StartRow
	t.StrideRow, t.StrideCol = m.StrideCol, m.StrideRow
	t.Rows, t.Cols = m.Cols, m.Rows
	t.InternalRows, t.InternalCols = m.InternalCols, m.InternalRows
	if m.Layout == RowMajor {
		t.Layout = ColumnMajor
	} else {
		t.Layout = RowMajor
	}
	return t
}

// ToSlice copies the logical elements of m to a new row-major slice. Mostly useful for tests.
func (m MatrixView[T]) ToSlice() []T {
	out := make([]T, m.Rows*m.Cols)
	for i := range m.Rows {
		for j := range m.Cols {
			out[i*m.Cols+j] = m.At(i, j)
		}
	}
	return out
}
