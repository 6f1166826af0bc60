// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import "github.com/gomlx/hostblas/pkg/core/dtypes"

// scalarKernel works for any tile shape. It is also the edge-tile path of the unrolled kernels.
type scalarKernel[T dtypes.Number] struct {
	mr, nr int
}

func (k scalarKernel[T]) Name() string        { return ScalarKernel }
func (k scalarKernel[T]) Shape() (mr, nr int) { return k.mr, k.nr }

func (k scalarKernel[T]) Compute(a, b, acc []T, kCount, rows, cols int) {
	scalarCompute(a, b, acc, kCount, rows, cols)
}

func scalarCompute[T dtypes.Number](a, b, acc []T, kCount, rows, cols int) {
	for p := range kCount {
		aCol := a[p*rows : p*rows+rows]
		bRow := b[p*cols : p*cols+cols]
		for i, aValue := range aCol {
			accRow := acc[i*cols : i*cols+cols]
			for j, bValue := range bRow {
				accRow[j] += aValue * bValue
			}
		}
	}
}
