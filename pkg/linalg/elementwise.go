// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg

import (
	"math"

	"github.com/gomlx/hostblas/pkg/core/dtypes"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/pkg/errors"
)

// checkElementwise validates the operands of an element-wise operation writing into dst.
func checkElementwise[T any](op string, dst view.MatrixView[T], srcs ...view.MatrixView[T]) error {
	if err := validateMatrices(op, append([]view.MatrixView[T]{dst}, srcs...)...); err != nil {
		return err
	}
	if err := sameShape(op, dst, srcs...); err != nil {
		return err
	}
	return sameLayout(op, dst, srcs...)
}

// Am computes dst = src ∘ alpha, where ∘ is a multiplication, or a division if alpha.Reciprocal.
//
// dst and src must have the same dimensions and layout.
func Am[T dtypes.Number](b *Backend, dst, src view.MatrixView[T], alpha Scalar[T]) error {
	if err := checkElementwise("linalg.Am", dst, src); err != nil {
		return err
	}
	scaleA := alpha.scale()
	return forEachLine(b, dst, func(line int) {
		d, dStep, n := lineOf(dst, line)
		s, sStep, _ := lineOf(src, line)
		for range n {
			dst.Data[d] = scaleA(src.Data[s])
			d += dStep
			s += sStep
		}
	})
}

// Ambm computes dst = src1 ∘ alpha + src2 ∘ beta. See Am.
func Ambm[T dtypes.Number](b *Backend, dst, src1 view.MatrixView[T], alpha Scalar[T], src2 view.MatrixView[T], beta Scalar[T]) error {
	return ambm("linalg.Ambm", b, dst, src1, alpha, src2, beta, false)
}

// AmbmM computes dst += src1 ∘ alpha + src2 ∘ beta. See Am.
func AmbmM[T dtypes.Number](b *Backend, dst, src1 view.MatrixView[T], alpha Scalar[T], src2 view.MatrixView[T], beta Scalar[T]) error {
	return ambm("linalg.AmbmM", b, dst, src1, alpha, src2, beta, true)
}

func ambm[T dtypes.Number](op string, b *Backend, dst, src1 view.MatrixView[T], alpha Scalar[T],
	src2 view.MatrixView[T], beta Scalar[T], accumulate bool) error {
	if err := checkElementwise(op, dst, src1, src2); err != nil {
		return err
	}
	scaleA, scaleB := alpha.scale(), beta.scale()
	return forEachLine(b, dst, func(line int) {
		d, dStep, n := lineOf(dst, line)
		s1, s1Step, _ := lineOf(src1, line)
		s2, s2Step, _ := lineOf(src2, line)
		for range n {
			v := scaleA(src1.Data[s1]) + scaleB(src2.Data[s2])
			if accumulate {
				dst.Data[d] += v
			} else {
				dst.Data[d] = v
			}
			d += dStep
			s1 += s1Step
			s2 += s2Step
		}
	})
}

// Assign sets every element of mat to s.
//
// If withPadding is true, the whole physical buffer (InternalRows x InternalCols elements, padding included)
// is set, which is what one wants to initialize padded matrices. In that case mat must start at (0, 0)
// with unit strides.
func Assign[T dtypes.Number](b *Backend, mat view.MatrixView[T], s T, withPadding bool) error {
	const op = "linalg.Assign"
	if err := validateMatrices(op, mat); err != nil {
		return err
	}
	if withPadding {
		if mat.StartRow != 0 || mat.StartCol != 0 || mat.StrideRow != 1 || mat.StrideCol != 1 {
			return errors.Wrapf(ErrInvalidView, "%s: clearing the padding requires a full matrix, got %s", op, mat)
		}
		full := view.Padded(mat.Data, mat.InternalRows, mat.InternalCols, mat.InternalRows, mat.InternalCols, mat.Layout)
		if err := validateMatrices(op, full); err != nil {
			return err
		}
		mat = full
	}
	return forEachLine(b, mat, func(line int) {
		d, dStep, n := lineOf(mat, line)
		for range n {
			mat.Data[d] = s
			d += dStep
		}
	})
}

// DiagonalAssign sets the elements (i, i) of mat to s, for i < min(Rows, Cols).
func DiagonalAssign[T dtypes.Number](b *Backend, mat view.MatrixView[T], s T) error {
	if err := validateMatrices("linalg.DiagonalAssign", mat); err != nil {
		return err
	}
	size := min(mat.Rows, mat.Cols)
	return parallelItems(b, size*size, size, func(i int) {
		mat.Set(i, i, s)
	})
}

// BinaryOp is an element-wise operation on two operands.
type BinaryOp int

const (
	OpProd BinaryOp = iota
	OpDiv
	OpPow
	OpAdd
	OpSub
	OpMax
	OpMin
)

func (op BinaryOp) String() string {
	switch op {
	case OpProd:
		return "Prod"
	case OpDiv:
		return "Div"
	case OpPow:
		return "Pow"
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpMax:
		return "Max"
	case OpMin:
		return "Min"
	}
	return "BinaryOp(?)"
}

func binaryFn[T dtypes.Number](op BinaryOp) (func(x, y T) T, error) {
	switch op {
	case OpProd:
		return func(x, y T) T { return x * y }, nil
	case OpDiv:
		return func(x, y T) T { return x / y }, nil
	case OpPow:
		return func(x, y T) T { return T(math.Pow(float64(x), float64(y))) }, nil
	case OpAdd:
		return func(x, y T) T { return x + y }, nil
	case OpSub:
		return func(x, y T) T { return x - y }, nil
	case OpMax:
		return func(x, y T) T { return max(x, y) }, nil
	case OpMin:
		return func(x, y T) T { return min(x, y) }, nil
	}
	return nil, errors.Errorf("unknown binary operation %d", op)
}

// ElementBinary computes dst[i, j] = op(lhs[i, j], rhs[i, j]).
// All operands must have the same dimensions and layout.
func ElementBinary[T dtypes.Number](b *Backend, dst, lhs, rhs view.MatrixView[T], op BinaryOp) error {
	name := "linalg.ElementBinary(" + op.String() + ")"
	fn, err := binaryFn[T](op)
	if err != nil {
		return errors.WithMessage(err, name)
	}
	if err := checkElementwise(name, dst, lhs, rhs); err != nil {
		return err
	}
	return forEachLine(b, dst, func(line int) {
		d, dStep, n := lineOf(dst, line)
		l, lStep, _ := lineOf(lhs, line)
		r, rStep, _ := lineOf(rhs, line)
		for range n {
			dst.Data[d] = fn(lhs.Data[l], rhs.Data[r])
			d += dStep
			l += lStep
			r += rStep
		}
	})
}

// UnaryOp is an element-wise function.
type UnaryOp int

const (
	OpAbs UnaryOp = iota
	OpAcos
	OpAsin
	OpAtan
	OpCeil
	OpCos
	OpCosh
	OpExp
	OpFabs
	OpFloor
	OpLog
	OpLog10
	OpSin
	OpSinh
	OpSqrt
	OpTan
	OpTanh
	OpNeg
)

var unaryOpNames = [...]string{
	OpAbs: "Abs", OpAcos: "Acos", OpAsin: "Asin", OpAtan: "Atan", OpCeil: "Ceil", OpCos: "Cos", OpCosh: "Cosh",
	OpExp: "Exp", OpFabs: "Fabs", OpFloor: "Floor", OpLog: "Log", OpLog10: "Log10", OpSin: "Sin", OpSinh: "Sinh", OpSqrt: "Sqrt",
	OpTan: "Tan", OpTanh: "Tanh", OpNeg: "Neg",
}

func (op UnaryOp) String() string {
	if op < 0 || int(op) >= len(unaryOpNames) {
		return "UnaryOp(?)"
	}
	return unaryOpNames[op]
}

var unaryMathFns = [...]func(float64) float64{
	OpAbs: math.Abs, OpAcos: math.Acos, OpAsin: math.Asin, OpAtan: math.Atan, OpCeil: math.Ceil, OpCos: math.Cos,
	OpCosh: math.Cosh, OpExp: math.Exp, OpFabs: math.Abs, OpFloor: math.Floor, OpLog: math.Log, OpLog10: math.Log10, OpSin: math.Sin,
	OpSinh: math.Sinh, OpSqrt: math.Sqrt, OpTan: math.Tan, OpTanh: math.Tanh,
}

func unaryFn[T dtypes.Number](op UnaryOp) (func(x T) T, error) {
	switch op {
	case OpNeg:
		return func(x T) T { return -x }, nil
	case OpAbs, OpFabs:
		return func(x T) T {
			if x < 0 {
				return -x
			}
			return x
		}, nil
	}
	if op < 0 || int(op) >= len(unaryMathFns) || unaryMathFns[op] == nil {
		return nil, errors.Errorf("unknown unary operation %d", op)
	}
	mathFn := unaryMathFns[op]
	return func(x T) T { return T(mathFn(float64(x))) }, nil
}

// ElementUnary computes dst[i, j] = op(src[i, j]).
// Both operands must have the same dimensions and layout. Integer types are converted to float64
// for the transcendental functions and truncated back.
func ElementUnary[T dtypes.Number](b *Backend, dst, src view.MatrixView[T], op UnaryOp) error {
	name := "linalg.ElementUnary(" + op.String() + ")"
	fn, err := unaryFn[T](op)
	if err != nil {
		return errors.WithMessage(err, name)
	}
	if err := checkElementwise(name, dst, src); err != nil {
		return err
	}
	return forEachLine(b, dst, func(line int) {
		d, dStep, n := lineOf(dst, line)
		s, sStep, _ := lineOf(src, line)
		for range n {
			dst.Data[d] = fn(src.Data[s])
			d += dStep
			s += sStep
		}
	})
}
