// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import (
	"github.com/gomlx/hostblas/pkg/core/view"
)

// PackA copies the mc x kc block of op(A) starting at (rowStart, kStart) into dst, where
// op(A) is A or its transpose.
//
// The block is rearranged into horizontal slivers of mr rows, one after the other. Within a sliver
// of width w (mr, or less for the last one when mc isn't a multiple of mr) element (i, p) is stored at
// p*w + i, so the micro-kernel reads a column of the sliver at a time.
//
// mc and kc are the valid extents of the block: nothing outside of op(A) is read.
// It returns the number of elements written.
func PackA[T any](dst []T, a view.MatrixView[T], transposed bool, rowStart, kStart, mc, kc, mr int) int {
	var base, rowStep, kStep int
	if transposed {
		base = a.Offset(kStart, rowStart)
		rowStep, kStep = a.ColStep(), a.RowStep()
	} else {
		base = a.Offset(rowStart, kStart)
		rowStep, kStep = a.RowStep(), a.ColStep()
	}
	src := a.Data
	dstIdx := 0
	for sliverRow := 0; sliverRow < mc; sliverRow += mr {
		width := min(mr, mc-sliverRow)
		sliverBase := base + sliverRow*rowStep
		if rowStep == 1 {
			for p := range kc {
				srcIdx := sliverBase + p*kStep
				copy(dst[dstIdx:dstIdx+width], src[srcIdx:srcIdx+width])
				dstIdx += width
			}
			continue
		}
		for p := range kc {
			srcIdx := sliverBase + p*kStep
			out := dst[dstIdx : dstIdx+width]
			for i := range out {
				out[i] = src[srcIdx]
				srcIdx += rowStep
			}
			dstIdx += width
		}
	}
	return dstIdx
}

// PackB copies the kc x nc block of op(B) starting at (kStart, colStart) into dst, where
// op(B) is B or its transpose.
//
// The block is rearranged into vertical slivers of nr columns. Within a sliver of width w
// element (p, j) is stored at p*w + j.
//
// It returns the number of elements written.
func PackB[T any](dst []T, b view.MatrixView[T], transposed bool, kStart, colStart, kc, nc, nr int) int {
	var base, kStep, colStep int
	if transposed {
		base = b.Offset(colStart, kStart)
		kStep, colStep = b.ColStep(), b.RowStep()
	} else {
		base = b.Offset(kStart, colStart)
		kStep, colStep = b.RowStep(), b.ColStep()
	}
	src := b.Data
	dstIdx := 0
	for sliverCol := 0; sliverCol < nc; sliverCol += nr {
		width := min(nr, nc-sliverCol)
		sliverBase := base + sliverCol*colStep
		if colStep == 1 {
			for p := range kc {
				srcIdx := sliverBase + p*kStep
				copy(dst[dstIdx:dstIdx+width], src[srcIdx:srcIdx+width])
				dstIdx += width
			}
			continue
		}
		for p := range kc {
			srcIdx := sliverBase + p*kStep
			out := dst[dstIdx : dstIdx+width]
			for j := range out {
				out[j] = src[srcIdx]
				srcIdx += colStep
			}
			dstIdx += width
		}
	}
	return dstIdx
}
