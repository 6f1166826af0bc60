// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import "github.com/gomlx/hostblas/pkg/core/dtypes"

// unrolled4x4Kernel keeps a full 4x4 tile in local variables for the whole k loop.
type unrolled4x4Kernel[T dtypes.Number] struct{}

func (k unrolled4x4Kernel[T]) Name() string        { return Unrolled4x4Kernel }
func (k unrolled4x4Kernel[T]) Shape() (mr, nr int) { return 4, 4 }

func (k unrolled4x4Kernel[T]) Compute(a, b, acc []T, kCount, rows, cols int) {
	if rows != 4 || cols != 4 {
		scalarCompute(a, b, acc, kCount, rows, cols)
		return
	}
	var (
		c00, c01, c02, c03 T
		c10, c11, c12, c13 T
		c20, c21, c22, c23 T
		c30, c31, c32, c33 T
	)
	a = a[:kCount*4]
	b = b[:kCount*4]
	for p := range kCount {
		aCol := a[p*4 : p*4+4 : p*4+4]
		bRow := b[p*4 : p*4+4 : p*4+4]
		b0, b1, b2, b3 := bRow[0], bRow[1], bRow[2], bRow[3]
		a0 := aCol[0]
		c00, c01, c02, c03 = c00+a0*b0, c01+a0*b1, c02+a0*b2, c03+a0*b3
		a1 := aCol[1]
		c10, c11, c12, c13 = c10+a1*b0, c11+a1*b1, c12+a1*b2, c13+a1*b3
		a2 := aCol[2]
		c20, c21, c22, c23 = c20+a2*b0, c21+a2*b1, c22+a2*b2, c23+a2*b3
		a3 := aCol[3]
		c30, c31, c32, c33 = c30+a3*b0, c31+a3*b1, c32+a3*b2, c33+a3*b3
	}
	acc = acc[:16]
	acc[0] += c00
	acc[1] += c01
	acc[2] += c02
	acc[3] += c03
	acc[4] += c10
	acc[5] += c11
	acc[6] += c12
	acc[7] += c13
	acc[8] += c20
	acc[9] += c21
	acc[10] += c22
	acc[11] += c23
	acc[12] += c30
	acc[13] += c31
	acc[14] += c32
	acc[15] += c33
}

// unrolled8x4Kernel keeps a full 8x4 tile in local variables for the whole k loop.
type unrolled8x4Kernel[T dtypes.Number] struct{}

func (k unrolled8x4Kernel[T]) Name() string        { return Unrolled8x4Kernel }
func (k unrolled8x4Kernel[T]) Shape() (mr, nr int) { return 8, 4 }

func (k unrolled8x4Kernel[T]) Compute(a, b, acc []T, kCount, rows, cols int) {
	if rows != 8 || cols != 4 {
		scalarCompute(a, b, acc, kCount, rows, cols)
		return
	}
	var (
		c00, c01, c02, c03 T
		c10, c11, c12, c13 T
		c20, c21, c22, c23 T
		c30, c31, c32, c33 T
		c40, c41, c42, c43 T
		c50, c51, c52, c53 T
		c60, c61, c62, c63 T
		c70, c71, c72, c73 T
	)
	a = a[:kCount*8]
	b = b[:kCount*4]
	for p := range kCount {
		aCol := a[p*8 : p*8+8 : p*8+8]
		bRow := b[p*4 : p*4+4 : p*4+4]
		b0, b1, b2, b3 := bRow[0], bRow[1], bRow[2], bRow[3]
		a0 := aCol[0]
		c00, c01, c02, c03 = c00+a0*b0, c01+a0*b1, c02+a0*b2, c03+a0*b3
		a1 := aCol[1]
		c10, c11, c12, c13 = c10+a1*b0, c11+a1*b1, c12+a1*b2, c13+a1*b3
		a2 := aCol[2]
		c20, c21, c22, c23 = c20+a2*b0, c21+a2*b1, c22+a2*b2, c23+a2*b3
		a3 := aCol[3]
		c30, c31, c32, c33 = c30+a3*b0, c31+a3*b1, c32+a3*b2, c33+a3*b3
		a4 := aCol[4]
		c40, c41, c42, c43 = c40+a4*b0, c41+a4*b1, c42+a4*b2, c43+a4*b3
		a5 := aCol[5]
		c50, c51, c52, c53 = c50+a5*b0, c51+a5*b1, c52+a5*b2, c53+a5*b3
		a6 := aCol[6]
		c60, c61, c62, c63 = c60+a6*b0, c61+a6*b1, c62+a6*b2, c63+a6*b3
		a7 := aCol[7]
		c70, c71, c72, c73 = c70+a7*b0, c71+a7*b1, c72+a7*b2, c73+a7*b3
	}
	acc = acc[:32]
	acc[0] += c00
	acc[1] += c01
	acc[2] += c02
	acc[3] += c03
	acc[4] += c10
	acc[5] += c11
	acc[6] += c12
	acc[7] += c13
	acc[8] += c20
	acc[9] += c21
	acc[10] += c22
	acc[11] += c23
	acc[12] += c30
	acc[13] += c31
	acc[14] += c32
	acc[15] += c33
	acc[16] += c40
	acc[17] += c41
	acc[18] += c42
	acc[19] += c43
	acc[20] += c50
	acc[21] += c51
	acc[22] += c52
	acc[23] += c53
	acc[24] += c60
	acc[25] += c61
	acc[26] += c62
	acc[27] += c63
	acc[28] += c70
	acc[29] += c71
	acc[30] += c72
	acc[31] += c73
}
