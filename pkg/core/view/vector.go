// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package view

import (
	"fmt"

	"github.com/pkg/errors"
)

// VectorView is a strided window into a flat buffer holding a vector.
type VectorView[T any] struct {
	Data   []T
	Start  int
	Stride int
	Size   int
}

// Vector returns a view covering all of data.
func Vector[T any](data []T) VectorView[T] {
	return VectorView[T]{Data: data, Stride: 1, Size: len(data)}
}

// Offset returns the position in Data of element i.
func (v VectorView[T]) Offset(i int) int {
	return v.Start + i*v.Stride
}

// At returns element i.
func (v VectorView[T]) At(i int) T {
	return v.Data[v.Start+i*v.Stride]
}

// Set writes element i.
func (v VectorView[T]) Set(i int, x T) {
	v.Data[v.Start+i*v.Stride] = x
}

// Sub returns the elements [from, from+size) of v.
func (v VectorView[T]) Sub(from, size int) VectorView[T] {
	s := v
	s.Start = v.Start + from*v.Stride
	s.Size = size
	return s
}

func (v VectorView[T]) String() string {
	return fmt.Sprintf("VectorView[%T](size=%d, start=%d, stride=%d)", *new(T), v.Size, v.Start, v.Stride)
}

// Validate checks the view against its buffer.
func (v VectorView[T]) Validate() error {
	if v.Size < 0 || v.Start < 0 {
		return errors.Errorf("negative extents in %s", v)
	}
	if v.Size == 0 {
		return nil
	}
	if v.Stride <= 0 {
		return errors.Errorf("stride must be positive in %s", v)
	}
	if last := v.Offset(v.Size - 1); last >= len(v.Data) {
		return errors.Errorf("view addresses offset %d but buffer has only %d elements in %s", last, len(v.Data), v)
	}
	return nil
}

// ToSlice copies the elements of v into a new slice.
func (v VectorView[T]) ToSlice() []T {
	out := make([]T, v.Size)
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}
