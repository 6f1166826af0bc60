// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes enumerates the element types the linear algebra engine knows about,
// their byte widths, and the generic constraints used across hostblas.
//
// Half precision types (Float16 and BFloat16) are storage-only: they are converted to
// float32 before reaching the engine.
package dtypes

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/gomlx/hostblas/pkg/core/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// DType identifies the element type of a buffer.
type DType int32

const (
	InvalidDType DType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float16
	BFloat16
	Float32
	Float64
)

var dtypeNames = [...]string{
	InvalidDType: "InvalidDType",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	BFloat16:     "BFloat16",
	Float32:      "Float32",
	Float64:      "Float64",
}

var dtypeSizes = [...]int{
	Int8:     1,
	Int16:    2,
	Int32:    4,
	Int64:    8,
	Uint8:    1,
	Uint16:   2,
	Uint32:   4,
	Uint64:   8,
	Float16:  2,
	BFloat16: 2,
	Float32:  4,
	Float64:  8,
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if dtype < 0 || int(dtype) >= len(dtypeNames) {
		return "DType(" + strconv.Itoa(int(dtype)) + ")"
	}
	return dtypeNames[dtype]
}

// Size returns the number of bytes of one element of dtype, or 0 for InvalidDType.
func (dtype DType) Size() int {
	if dtype <= 0 || int(dtype) >= len(dtypeSizes) {
		return 0
	}
	return dtypeSizes[dtype]
}

// IsFloat returns whether dtype is a floating point type, including the half precision ones.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == BFloat16 || dtype == Float32 || dtype == Float64
}

// IsHalfPrecision returns whether dtype is Float16 or BFloat16.
func (dtype DType) IsHalfPrecision() bool {
	return dtype == Float16 || dtype == BFloat16
}

// Parse converts a case-insensitive dtype name ("float32", "F32", "bf16") to its DType.
func Parse(name string) (DType, error) {
	switch strings.ToLower(name) {
	case "int8", "s8", "i8":
		return Int8, nil
	case "int16", "s16", "i16":
		return Int16, nil
	case "int32", "s32", "i32":
		return Int32, nil
	case "int64", "s64", "i64", "int":
		return Int64, nil
	case "uint8", "u8":
		return Uint8, nil
	case "uint16", "u16":
		return Uint16, nil
	case "uint32", "u32":
		return Uint32, nil
	case "uint64", "u64":
		return Uint64, nil
	case "float16", "f16", "half":
		return Float16, nil
	case "bfloat16", "bf16":
		return BFloat16, nil
	case "float32", "f32", "float":
		return Float32, nil
	case "float64", "f64", "double":
		return Float64, nil
	}
	return InvalidDType, errors.Errorf("unknown dtype %q", name)
}

// Number is the set of element types the engine computes with.
type Number interface {
	constraints.Integer | constraints.Float
}

// Float is the set of native Go float types.
type Float interface {
	constraints.Float
}

// Supported includes Number plus the storage-only half precision types.
type Supported interface {
	Number | float16.Float16 | bfloat16.BFloat16
}

// FromGenericsType returns the DType for the generic type T.
func FromGenericsType[T Supported]() DType {
	var t T
	switch any(t).(type) {
	case float64:
		return Float64
	case float32:
		return Float32
	case float16.Float16:
		return Float16
	case bfloat16.BFloat16:
		return BFloat16
	case int:
		if strconv.IntSize == 32 {
			return Int32
		}
		return Int64
	case int64:
		return Int64
	case int32:
		return Int32
	case int16:
		return Int16
	case int8:
		return Int8
	case uint:
		if strconv.IntSize == 32 {
			return Uint32
		}
		return Uint64
	case uint64:
		return Uint64
	case uint32:
		return Uint32
	case uint16:
		return Uint16
	case uint8:
		return Uint8
	case uintptr:
		return Uint64
	}
	// Named types, e.g. `type Celsius float64`, use the DType of their underlying type.
	return FromGoType(reflect.TypeFor[T]())
}

var (
	float16Type  = reflect.TypeFor[float16.Float16]()
	bfloat16Type = reflect.TypeFor[bfloat16.BFloat16]()
)

// FromGoType returns the DType for the given "reflect.Type", using its kind for named types.
// It returns InvalidDType for types the engine doesn't know.
func FromGoType(t reflect.Type) DType {
	if t == float16Type {
		return Float16
	} else if t == bfloat16Type {
		return BFloat16
	}
	switch t.Kind() {
	case reflect.Int:
		if strconv.IntSize == 32 {
			return Int32
		}
		return Int64
	case reflect.Int64:
		return Int64
	case reflect.Int32:
		return Int32
	case reflect.Int16:
		return Int16
	case reflect.Int8:
		return Int8

	case reflect.Uint:
		if strconv.IntSize == 32 {
			return Uint32
		}
		return Uint64
	case reflect.Uint64, reflect.Uintptr:
		return Uint64
	case reflect.Uint32:
		return Uint32
	case reflect.Uint16:
		return Uint16
	case reflect.Uint8:
		return Uint8

	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	}
	return InvalidDType
}

// SizeOf returns the byte width of one element of T.
func SizeOf[T Supported]() int {
	return FromGenericsType[T]().Size()
}
