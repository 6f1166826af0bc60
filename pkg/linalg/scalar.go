// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"fmt"

	"github.com/gomlx/hostblas/pkg/core/dtypes"
)

// Scalar is a scaling factor for the element-wise updates (Am, Ambm, AmbmM and ScaledRank1Update).
//
// FlipSign negates Value. Reciprocal makes the update divide by the (sign adjusted) value instead
// of multiplying, which for integer types isn't the same as multiplying by 1/Value.
type Scalar[T dtypes.Number] struct {
	Value      T
	Reciprocal bool
	FlipSign   bool
}

// S returns a plain Scalar with the value v.
func S[T dtypes.Number](v T) Scalar[T] {
	return Scalar[T]{Value: v}
}

// Neg returns the scalar with its sign flipped.
func (s Scalar[T]) Neg() Scalar[T] {
	s.FlipSign = !s.FlipSign
	return s
}

// Inv returns the scalar with its reciprocal flag toggled.
func (s Scalar[T]) Inv() Scalar[T] {
	s.Reciprocal = !s.Reciprocal
	return s
}

// signed returns the value with FlipSign applied.
func (s Scalar[T]) signed() T {
	if s.FlipSign {
		return -s.Value
	}
	return s.Value
}

// Resolve returns the effective multiplier: -Value if FlipSign, then inverted if Reciprocal.
func (s Scalar[T]) Resolve() T {
	v := s.signed()
	if s.Reciprocal {
		return 1 / v
	}
	return v
}

// scale returns the function x -> x ∘ s.
func (s Scalar[T]) scale() func(x T) T {
	v := s.signed()
	if s.Reciprocal {
		return func(x T) T { return x / v }
	}
	return func(x T) T { return x * v }
}

func (s Scalar[T]) String() string {
	str := fmt.Sprint(s.Value)
	if s.FlipSign {
		str = "-" + str
	}
	if s.Reciprocal {
		str = "1/(" + str + ")"
	}
	return str
}
