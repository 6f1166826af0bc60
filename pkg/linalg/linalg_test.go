// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package linalg_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/hostblas/pkg/core/dtypes/bfloat16"
	"github.com/gomlx/hostblas/pkg/core/view"
	"github.com/gomlx/hostblas/pkg/linalg"
	"github.com/gomlx/hostblas/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

var layouts = []view.Layout{view.RowMajor, view.ColumnMajor}

// randomMatrix returns a rows x cols view inside a larger buffer of random values.
func randomMatrix(rng *rand.Rand, rows, cols int, layout view.Layout) view.MatrixView[float64] {
	internalRows, internalCols := rows+3, cols+1
	data := make([]float64, internalRows*internalCols)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return view.Padded(data, internalRows, internalCols, internalRows, internalCols, layout).Sub(2, 1, rows, cols)
}

// fromRows creates a dense matrix with the given layout from row-major values.
func fromRows(values []float64, rows, cols int, layout view.Layout) view.MatrixView[float64] {
	m := view.Dense(make([]float64, rows*cols), rows, cols, layout)
	for i := range rows {
		for j := range cols {
			m.Set(i, j, values[i*cols+j])
		}
	}
	return m
}

// matMul multiplies row-major matrices.
func matMul(a []float64, rows, inner int, b []float64, cols int) []float64 {
	out := make([]float64, rows*cols)
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas64.General{Rows: rows, Cols: inner, Stride: inner, Data: a},
		blas64.General{Rows: inner, Cols: cols, Stride: cols, Data: b},
		0, blas64.General{Rows: rows, Cols: cols, Stride: cols, Data: out})
	return out
}

// reflection returns I - 2*d*dᵀ, row-major.
func reflection(d []float64) []float64 {
	n := len(d)
	p := make([]float64, n*n)
	for i := range n {
		for j := range n {
			p[i*n+j] = -2 * d[i] * d[j]
		}
		p[i*n+i] += 1
	}
	return p
}

func randomVector(rng *rand.Rand, size int) view.VectorView[float64] {
	// Strided, starting at 1, so vector offsets are exercised.
	data := make([]float64, 2*size+1)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return view.VectorView[float64]{Data: data, Start: 1, Stride: 2, Size: size}
}

func TestProd(t *testing.T) {
	for name, b := range backends(t) {
		rng := rand.New(rand.NewPCG(1, 2))
		for _, dims := range [][3]int{{1, 1, 1}, {5, 7, 3}, {33, 17, 29}, {64, 9, 70}} {
			m, k, n := dims[0], dims[1], dims[2]
			for _, layoutC := range layouts {
				for _, transA := range []bool{false, true} {
					t.Run(fmt.Sprintf("%s/%dx%dx%d/%s/transA=%v", name, m, k, n, layoutC, transA), func(t *testing.T) {
						a := randomMatrix(rng, m, k, view.ColumnMajor)
						if transA {
							a = randomMatrix(rng, k, m, view.RowMajor)
						}
						bMat := randomMatrix(rng, k, n, view.RowMajor)
						c := randomMatrix(rng, m, n, layoutC)
						opA := a.ToSlice()
						if transA {
							opA = a.Transposed().ToSlice()
						}
						want := matMul(opA, m, k, bMat.ToSlice(), n)
						cValues := c.ToSlice()
						for i := range want {
							want[i] = 0.5*want[i] - 2*cValues[i]
						}
						require.NoError(t, linalg.Prod(b, 0.5, a, transA, bMat, false, -2, c))
						assert.True(t, floats.EqualApprox(want, c.ToSlice(), 1e-12))
					})
				}
			}
		}
	}
}

func TestProdErrors(t *testing.T) {
	b := must.M1(linalg.NewWithConfig("parallelism=2"))
	a := view.Dense(make([]float64, 6), 2, 3, view.RowMajor)
	c := view.Dense(make([]float64, 4), 2, 2, view.RowMajor)
	err := linalg.Prod(b, 1, a, false, a, false, 0, c)
	assert.ErrorIs(t, err, linalg.ErrDimensionMismatch)

	// op(B) = Bᵀ is 3x2, but C is the wrong size.
	err = linalg.Prod(b, 1, a, false, a, true, 0, view.Dense(make([]float64, 6), 2, 3, view.RowMajor))
	assert.ErrorIs(t, err, linalg.ErrDimensionMismatch)

	bad := a
	bad.Rows = 5
	err = linalg.Prod(b, 1, bad, false, a, true, 0, c)
	assert.ErrorIs(t, err, linalg.ErrInvalidView)

	// Packing buffers don't fit in 16 bytes.
	tight := must.M1(linalg.NewWithConfig("scratch_limit=16B"))
	x := view.Dense(xslices.Iota(0.0, 64), 8, 8, view.RowMajor)
	y := view.Dense(make([]float64, 64), 8, 8, view.ColumnMajor)
	err = linalg.Prod(tight, 1, x, false, x, false, 0, y)
	assert.ErrorIs(t, err, linalg.ErrResourceExhausted)
	assert.Zero(t, tight.Scratch().Outstanding())
}

func TestProdHalf(t *testing.T) {
	// Sums of 5000 ones stall at 2048 when accumulated in float16; accumulating in float32 they don't.
	const m, k, n = 3, 5000, 4
	for name, b := range backends(t) {
		t.Run(name+"/float16", func(t *testing.T) {
			a := view.Dense(xslices.SliceWithValue(m*k, float16.Fromfloat32(1)), m, k, view.RowMajor)
			bT := view.Dense(xslices.SliceWithValue(n*k, float16.Fromfloat32(1)), n, k, view.ColumnMajor)
			c := view.Dense(xslices.SliceWithValue(m*n, float16.Fromfloat32(1)), m, n, view.ColumnMajor)
			require.NoError(t, linalg.ProdHalf(b, 1, a, false, bT, true, 2, c))
			for i, v := range c.Data {
				require.Equal(t, float32(5002), v.Float32(), "C[%d]", i)
			}
		})
		t.Run(name+"/bfloat16", func(t *testing.T) {
			a := view.Dense(xslices.SliceWithValue(m*k, bfloat16.FromFloat32(1)), m, k, view.ColumnMajor)
			bMat := view.Dense(xslices.SliceWithValue(k*n, bfloat16.FromFloat32(0.5)), k, n, view.RowMajor)
			c := view.Dense(xslices.SliceWithValue(m*n, bfloat16.FromFloat32(7)), m, n, view.RowMajor)
			require.NoError(t, linalg.ProdHalf(b, 2, a, false, bMat, false, 0, c))
			want := bfloat16.FromFloat32(5000).Float32()
			for i, v := range c.Data {
				require.Equal(t, want, v.Float32(), "C[%d]", i)
			}
		})
	}

	b := must.M1(linalg.NewWithConfig("parallelism=2"))
	a := view.Dense(make([]float16.Float16, 6), 2, 3, view.RowMajor)
	c := view.Dense(make([]float16.Float16, 4), 2, 2, view.RowMajor)
	assert.ErrorIs(t, linalg.ProdHalf(b, 1, a, false, a, false, 0, c), linalg.ErrDimensionMismatch)
	assert.NoError(t, linalg.ProdHalf(b, 1, a, false, a, true, 0, c))
}

func TestProdMatVec(t *testing.T) {
	for name, b := range backends(t) {
		rng := rand.New(rand.NewPCG(3, 4))
		for _, layout := range layouts {
			for _, trans := range []bool{false, true} {
				t.Run(fmt.Sprintf("%s/%s/trans=%v", name, layout, trans), func(t *testing.T) {
					a := randomMatrix(rng, 23, 11, layout)
					opA := a
					if trans {
						opA = a.Transposed()
					}
					x := randomVector(rng, opA.Cols)
					y := randomVector(rng, opA.Rows)
					want := matMul(opA.ToSlice(), opA.Rows, opA.Cols, x.ToSlice(), 1)
					require.NoError(t, linalg.ProdMatVec(b, a, trans, x, y))
					assert.True(t, floats.EqualApprox(want, y.ToSlice(), 1e-12))
				})
			}
		}
		err := linalg.ProdMatVec(b, randomMatrix(rng, 3, 4, view.RowMajor), false, randomVector(rng, 3), randomVector(rng, 3))
		assert.ErrorIs(t, err, linalg.ErrDimensionMismatch)
	}
}

func TestElementwiseUpdates(t *testing.T) {
	for name, b := range backends(t) {
		rng := rand.New(rand.NewPCG(5, 6))
		for _, layout := range layouts {
			t.Run(fmt.Sprintf("%s/%s", name, layout), func(t *testing.T) {
				src1 := randomMatrix(rng, 9, 13, layout)
				src2 := randomMatrix(rng, 9, 13, layout)
				dst := randomMatrix(rng, 9, 13, layout)
				v1, v2 := src1.ToSlice(), src2.ToSlice()

				require.NoError(t, linalg.Am(b, dst, src1, linalg.S(2.0).Neg()))
				assert.Equal(t, xslices.Map(v1, func(x float64) float64 { return -2 * x }), dst.ToSlice())

				require.NoError(t, linalg.Ambm(b, dst, src1, linalg.S(4.0).Inv(), src2, linalg.S(3.0)))
				want := make([]float64, len(v1))
				for i := range want {
					want[i] = v1[i]/4 + v2[i]*3
				}
				assert.True(t, floats.EqualApprox(want, dst.ToSlice(), 1e-15))

				require.NoError(t, linalg.Am(b, dst, src1, linalg.S(1.0)))
				require.NoError(t, linalg.AmbmM(b, dst, src1, linalg.S(1.0), src2, linalg.S(1.0).Neg()))
				for i := range want {
					want[i] = v1[i] + v1[i] - v2[i]
				}
				assert.True(t, floats.EqualApprox(want, dst.ToSlice(), 1e-15))
			})
		}
		rowMajor := randomMatrix(rng, 4, 4, view.RowMajor)
		colMajor := randomMatrix(rng, 4, 4, view.ColumnMajor)
		assert.ErrorIs(t, linalg.Am(b, rowMajor, colMajor, linalg.S(1.0)), linalg.ErrLayoutMismatch)
		assert.ErrorIs(t, linalg.Am(b, rowMajor, randomMatrix(rng, 4, 5, view.RowMajor), linalg.S(1.0)),
			linalg.ErrDimensionMismatch)
	}
}

func TestScalar(t *testing.T) {
	assert.Equal(t, -0.5, linalg.S(2.0).Neg().Inv().Resolve())
	assert.Equal(t, "1/(-2)", linalg.S(2.0).Neg().Inv().String())
	assert.Equal(t, int32(3), linalg.S(int32(3)).Neg().Neg().Resolve())
}

func TestAssign(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			data := xslices.SliceWithValue(4*5, -1.0)
			full := view.Padded(data, 3, 4, 4, 5, view.RowMajor)
			require.NoError(t, linalg.Assign(b, full, 7, false))
			assert.Equal(t, xslices.SliceWithValue(12, 7.0), full.ToSlice())
			assert.Equal(t, -1.0, data[4], "padding column must be untouched")
			assert.Equal(t, -1.0, data[19], "padding row must be untouched")

			require.NoError(t, linalg.Assign(b, full, 3, true))
			assert.Equal(t, xslices.SliceWithValue(20, 3.0), data)

			err := linalg.Assign(b, full.Sub(1, 1, 2, 2), 0, true)
			assert.ErrorIs(t, err, linalg.ErrInvalidView)

			mat := view.Dense(make([]float64, 12), 3, 4, view.ColumnMajor)
			require.NoError(t, linalg.DiagonalAssign(b, mat, 1))
			assert.Equal(t, []float64{
				1, 0, 0, 0,
				0, 1, 0, 0,
				0, 0, 1, 0}, mat.ToSlice())
		})
	}
}

func TestDiagonals(t *testing.T) {
	for name, b := range backends(t) {
		for _, layout := range layouts {
			t.Run(fmt.Sprintf("%s/%s", name, layout), func(t *testing.T) {
				mat := view.Dense(xslices.SliceWithValue(12, 9.0), 3, 4, layout)
				require.NoError(t, linalg.DiagFromVector(b, view.Vector([]float64{1, 2, 3}), 1, mat))
				assert.Equal(t, []float64{
					0, 1, 0, 0,
					0, 0, 2, 0,
					0, 0, 0, 3}, mat.ToSlice())

				require.NoError(t, linalg.DiagFromVector(b, view.Vector([]float64{5, 6}), -1, mat))
				assert.Equal(t, []float64{
					0, 0, 0, 0,
					5, 0, 0, 0,
					0, 6, 0, 0}, mat.ToSlice())

				counting := view.Dense(xslices.Iota(0.0, 12), 3, 4, view.RowMajor)
				vec := view.Vector(make([]float64, 3))
				require.NoError(t, linalg.DiagToVector(b, counting, 0, vec))
				assert.Equal(t, []float64{0, 5, 10}, vec.ToSlice())
				require.NoError(t, linalg.DiagToVector(b, counting, 1, vec))
				assert.Equal(t, []float64{1, 6, 11}, vec.ToSlice())

				err := linalg.DiagFromVector(b, view.Vector([]float64{1, 2, 3}), -1, mat)
				assert.ErrorIs(t, err, linalg.ErrDimensionMismatch)
			})
		}
	}
}

func TestRowColumnCopyVec(t *testing.T) {
	for name, b := range backends(t) {
		for _, layout := range layouts {
			t.Run(fmt.Sprintf("%s/%s", name, layout), func(t *testing.T) {
				mat := fromRows(xslices.Iota(0.0, 12), 3, 4, layout)
				row := view.Vector(make([]float64, 4))
				require.NoError(t, linalg.Row(b, mat, 2, row))
				assert.Equal(t, []float64{8, 9, 10, 11}, row.ToSlice())
				col := randomVector(rand.New(rand.NewPCG(0, 0)), 3)
				require.NoError(t, linalg.Column(b, mat, 1, col))
				assert.Equal(t, []float64{1, 5, 9}, col.ToSlice())
				assert.ErrorIs(t, linalg.Row(b, mat, 3, row), linalg.ErrDimensionMismatch)
				assert.ErrorIs(t, linalg.Column(b, mat, 0, row), linalg.ErrDimensionMismatch)

				vec := view.Vector(xslices.SliceWithValue(4, -1.0))
				require.NoError(t, linalg.CopyVec(b, mat, vec, 1, 2, true))
				assert.Equal(t, []float64{6, 10, -1, -1}, vec.ToSlice())
				require.NoError(t, linalg.CopyVec(b, mat, vec, 1, 1, false))
				assert.Equal(t, []float64{5, 6, 7, -1}, vec.ToSlice())
				assert.ErrorIs(t, linalg.CopyVec(b, mat, vec.Sub(0, 1), 0, 0, false), linalg.ErrDimensionMismatch)
			})
		}
	}
}
