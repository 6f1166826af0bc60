// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide small generic slice helpers missing from the standard slices package,
// mostly used to build and compare test data.
package xslices

import (
	"cmp"
	"math"

	"github.com/gomlx/hostblas/pkg/core/dtypes"
)

// SliceWithValue creates a slice of given size filled with given value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	FillSlice(s, value)
	return s
}

// FillSlice fills the slice with the given value.
func FillSlice[T any](slice []T, value T) {
	if len(slice) == 0 {
		return
	}
	// Doubling copies are faster than a loop for large slices.
	slice[0] = value
	for filled := 1; filled < len(slice); filled *= 2 {
		copy(slice[filled:], slice[:filled])
	}
}

// Iota returns a slice of incremental values, starting with start and of length len.
// Eg: Iota(3.0, 2) -> []float64{3.0, 4.0}
func Iota[T dtypes.Number](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// Max scans the slice and returns the maximum value. It returns the zero value for an empty slice.
func Max[T cmp.Ordered](slice []T) (max T) {
	if len(slice) == 0 {
		return
	}
	max = slice[0]
	for _, v := range slice[1:] {
		if v > max {
			max = v
		}
	}
	return
}

// MaxAbsDiff returns the largest absolute difference between s0[i] and s1[i], as a float64.
// NaNs at the same position are considered equal; a NaN against a number yields +Inf.
// It panics if the lengths differ.
func MaxAbsDiff[T dtypes.Number](s0, s1 []T) float64 {
	if len(s0) != len(s1) {
		panic("xslices.MaxAbsDiff: slices of different lengths")
	}
	var maxDiff float64
	for i, v0 := range s0 {
		f0, f1 := float64(v0), float64(s1[i])
		nan0, nan1 := math.IsNaN(f0), math.IsNaN(f1)
		if nan0 && nan1 {
			continue
		}
		if nan0 || nan1 {
			return math.Inf(1)
		}
		maxDiff = max(maxDiff, math.Abs(f0-f1))
	}
	return maxDiff
}

// InDelta returns whether all elements of s0 and s1 are within delta of each other (see MaxAbsDiff).
func InDelta[T dtypes.Number](s0, s1 []T, delta float64) bool {
	return len(s0) == len(s1) && MaxAbsDiff(s0, s1) <= delta
}
