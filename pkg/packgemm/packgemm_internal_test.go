// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packgemm

import (
	"math"
	"testing"

	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/gomlx/hostblas/pkg/support/xslices"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanBlocks(t *testing.T) {
	for _, tc := range []struct {
		m, k, n, elemSize, mr, nr int
		caches                    CacheSizes
	}{
		{1024, 1024, 1024, 4, 8, 4, DefaultCacheSizes},
		{1024, 1024, 1024, 8, 4, 4, DefaultCacheSizes},
		{3, 5, 7, 4, 8, 4, DefaultCacheSizes},
		{130, 67, 201, 8, 4, 4, CacheSizes{L1: 512, L2: 2048, L3: 4096}},
		{100, 100, 100, 8, 8, 4, CacheSizes{L1: 1, L2: 1, L3: 1}},
		{1, 1, 1, 2, 4, 4, CacheSizes{}},
	} {
		plan := PlanBlocks(tc.m, tc.k, tc.n, tc.elemSize, tc.mr, tc.nr, tc.caches)
		require.NoError(t, plan.Validate(), "PlanBlocks(%+v)", tc)
		assert.LessOrEqual(t, plan.Kc, tc.k)
		assert.LessOrEqual(t, plan.Mc, roundUp(tc.m, tc.mr))
		assert.LessOrEqual(t, plan.Nc, roundUp(tc.n, tc.nr))
	}

	plan := PlanBlocks(130, 67, 201, 8, 4, 4, CacheSizes{L1: 512, L2: 2048, L3: 4096})
	if diff := cmp.Diff(BlockingPlan{Mr: 4, Nr: 4, Kc: 8, Mc: 32, Nc: 64}, plan); diff != "" {
		t.Errorf("PlanBlocks mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitForWorkers(t *testing.T) {
	plan := BlockingPlan{Mr: 8, Nr: 4, Kc: 256, Mc: 128, Nc: 1024}
	split := SplitForWorkers(plan, 1000, 8)
	require.NoError(t, split.Validate())
	assert.Equal(t, 128, split.Nc)
	assert.GreaterOrEqual(t, (1000+split.Nc-1)/split.Nc, 8)

	// Already enough blocks, or a single worker: unchanged.
	assert.Equal(t, plan, SplitForWorkers(plan, 100_000, 8))
	assert.Equal(t, plan, SplitForWorkers(plan, 1000, 1))

	// Tiny n can't be split below Nr.
	assert.Equal(t, 4, SplitForWorkers(plan, 6, 16).Nc)
}

func TestBlockingPlanValidate(t *testing.T) {
	require.Error(t, BlockingPlan{Mr: 4, Nr: 4, Kc: 8, Mc: 30, Nc: 64}.Validate())
	require.Error(t, BlockingPlan{Mr: 4, Nr: 4, Kc: 8, Mc: 32, Nc: 62}.Validate())
	require.Error(t, BlockingPlan{Mr: 4, Nr: 4, Kc: 0, Mc: 32, Nc: 64}.Validate())
}

func TestPackA(t *testing.T) {
	// A is 5x7, row-major, values = 10*row + col.
	data := make([]float32, 5*7)
	for i := range 5 {
		for j := range 7 {
			data[i*7+j] = float32(10*i + j)
		}
	}
	a := view.Dense(data, 5, 7, view.RowMajor)

	// Block rows [1, 4) (3 rows), k [2, 4), mr=2: one full sliver and one of width 1.
	dst := xslices.SliceWithValue(10, float32(math.NaN()))
	n := PackA(dst, a, false, 1, 2, 3, 2, 2)
	require.Equal(t, 6, n)
	want := []float32{12, 22, 13, 23, 32, 33}
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("PackA mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, math.IsNaN(float64(dst[n])), "PackA wrote past the block")

	// Same logical block from the transposed matrix stored column-major: op(A^T^T).
	at := a.Transposed()
	n = PackA(dst, at, true, 1, 2, 3, 2, 2)
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("PackA(transposed) mismatch (-want +got):\n%s", diff)
	}

	// Column-major copy of A.
	cm := make([]float32, 5*7)
	for i := range 5 {
		for j := range 7 {
			cm[i+j*5] = data[i*7+j]
		}
	}
	n = PackA(dst, view.Dense(cm, 5, 7, view.ColumnMajor), false, 1, 2, 3, 2, 2)
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("PackA(column-major) mismatch (-want +got):\n%s", diff)
	}
}

func TestPackB(t *testing.T) {
	// B is 4x6, column-major, values = 10*row + col.
	data := make([]float64, 4*6)
	for i := range 4 {
		for j := range 6 {
			data[i+j*4] = float64(10*i + j)
		}
	}
	b := view.Dense(data, 4, 6, view.ColumnMajor)

	// k rows [1, 3), cols [1, 6) with nr=2: slivers of widths 2, 2, 1.
	dst := make([]float64, 20)
	n := PackB(dst, b, false, 1, 1, 2, 5, 2)
	require.Equal(t, 10, n)
	want := []float64{
		11, 12, 21, 22,
		13, 14, 23, 24,
		15, 25,
	}
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("PackB mismatch (-want +got):\n%s", diff)
	}

	n = PackB(dst, b.Transposed(), true, 1, 1, 2, 5, 2)
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("PackB(transposed) mismatch (-want +got):\n%s", diff)
	}

	// Strided view: every other column of an 4x12 row-major matrix.
	wide := make([]float64, 4*12)
	for i := range 4 {
		for j := range 6 {
			wide[i*12+2*j] = float64(10*i + j)
			wide[i*12+2*j+1] = -1
		}
	}
	strided := view.Dense(wide, 4, 12, view.RowMajor).Slice(0, 0, 1, 2, 4, 6)
	n = PackB(dst, strided, false, 1, 1, 2, 5, 2)
	if diff := cmp.Diff(want, dst[:n]); diff != "" {
		t.Errorf("PackB(strided) mismatch (-want +got):\n%s", diff)
	}
}

func TestKernels(t *testing.T) {
	for _, variant := range Kernels[float32]() {
		t.Run(variant.Name, func(t *testing.T) {
			kernel, err := NewKernel[float32](variant.Name)
			require.NoError(t, err)
			mr, nr := kernel.Shape()
			assert.Equal(t, variant.Name, kernel.Name())

			for _, tile := range [][2]int{{mr, nr}, {mr - 1, nr}, {mr, 1}, {1, 1}} {
				rows, cols := tile[0], tile[1]
				const kCount = 5
				a := xslices.Iota(float32(1), kCount*rows)
				b := xslices.Iota(float32(-3), kCount*cols)
				acc := make([]float32, rows*cols)
				kernel.Compute(a, b, acc, kCount, rows, cols)
				for i := range rows {
					for j := range cols {
						var want float32
						for p := range kCount {
							want += a[p*rows+i] * b[p*cols+j]
						}
						require.Equal(t, want, acc[i*cols+j], "tile %dx%d, element (%d, %d)", rows, cols, i, j)
					}
				}
			}
		})
	}

	_, err := NewKernel[float64]("avx1024")
	require.Error(t, err)
	assert.NotEmpty(t, DefaultKernel[float64]())
}

func TestRegisterKernelShape(t *testing.T) {
	// The tile shape comes from the registered constructor.
	RegisterKernel(KernelVariant{Name: ScalarKernel, Available: alwaysAvailable},
		func() MicroKernel[uint8] { return scalarKernel[uint8]{mr: 8, nr: 4} })
	kernel, err := NewKernel[uint8](ScalarKernel)
	require.NoError(t, err)
	mr, nr := kernel.Shape()
	assert.Equal(t, [2]int{8, 4}, [2]int{mr, nr})

	// Other types keep their own registration.
	kernel32, err := NewKernel[uint32](ScalarKernel)
	require.NoError(t, err)
	mr, nr = kernel32.Shape()
	assert.Equal(t, [2]int{4, 4}, [2]int{mr, nr})

	require.Panics(t, func() {
		RegisterKernel(KernelVariant{Name: "empty", Available: alwaysAvailable},
			func() MicroKernel[uint8] { return scalarKernel[uint8]{} })
	})
}

func TestBetaMode(t *testing.T) {
	assert.Equal(t, betaZero, betaModeOf(float32(0)))
	assert.Equal(t, betaZero, betaModeOf(float32(math.Copysign(0, -1))))
	assert.Equal(t, betaGeneral, betaModeOf(1.0))
	assert.Equal(t, betaGeneral, betaModeOf(-1e-30))
	assert.Equal(t, betaGeneral, betaModeOf(math.NaN()))
	assert.Equal(t, betaZero, betaModeOf(int32(0)))
	assert.Equal(t, betaGeneral, betaModeOf(int32(-2)))
}
