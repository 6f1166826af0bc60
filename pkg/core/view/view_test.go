// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package view

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetInjective(t *testing.T) {
	data := make([]float32, 40*50)
	for _, layout := range []Layout{RowMajor, ColumnMajor} {
		for _, strides := range [][2]int{{1, 1}, {2, 3}, {3, 1}, {1, 4}} {
			name := fmt.Sprintf("%s/strides=%v", layout, strides)
			t.Run(name, func(t *testing.T) {
				m := Padded(data, 40, 50, 40, 50, layout).Slice(2, 1, strides[0], strides[1], 0, 0)
				m.Rows = (40 - 2 - 1) / strides[0]
				m.Cols = (50 - 1 - 1) / strides[1]
				require.NoError(t, m.Validate())
				seen := make(map[int][2]int, m.Rows*m.Cols)
				for i := range m.Rows {
					for j := range m.Cols {
						off := m.Offset(i, j)
						if prev, found := seen[off]; found {
							t.Fatalf("offset %d used by (%d,%d) and %v", off, i, j, prev)
						}
						seen[off] = [2]int{i, j}
						if off < 0 || off >= len(data) {
							t.Fatalf("offset %d of (%d,%d) out of the buffer", off, i, j)
						}
					}
				}
			})
		}
	}
}

func TestSteps(t *testing.T) {
	for _, layout := range []Layout{RowMajor, ColumnMajor} {
		m := Padded(make([]int, 7*9), 5, 6, 7, 9, layout).Slice(1, 1, 2, 1, 3, 4)
		for i := range m.Rows - 1 {
			for j := range m.Cols - 1 {
				assert.Equal(t, m.RowStep(), m.Offset(i+1, j)-m.Offset(i, j), "%s RowStep", layout)
				assert.Equal(t, m.ColStep(), m.Offset(i, j+1)-m.Offset(i, j), "%s ColStep", layout)
			}
		}
	}
}

func TestLayouts(t *testing.T) {
	data := []int{0, 1, 2, 3, 4, 5}
	rm := Dense(data, 2, 3, RowMajor)
	assert.Equal(t, 5, rm.At(1, 2))
	assert.Equal(t, 3, rm.At(1, 0))
	cm := Dense(data, 2, 3, ColumnMajor)
	assert.Equal(t, 5, cm.At(1, 2))
	assert.Equal(t, 1, cm.At(1, 0))
	assert.Equal(t, 2, cm.At(0, 1))

	if diff := cmp.Diff([]int{0, 3, 1, 4, 2, 5}, rm.Transposed().ToSlice()); diff != "" {
		t.Errorf("Transposed() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ColumnMajor, rm.Transposed().Layout)
	assert.True(t, rm.IsContiguous())
	assert.False(t, rm.Sub(0, 1, 2, 2).IsContiguous())

	sub := rm.Sub(1, 1, 1, 2)
	sub.Set(0, 1, 50)
	assert.Equal(t, 50, data[5])
}

func TestValidate(t *testing.T) {
	data := make([]float64, 12)
	require.NoError(t, Dense(data, 3, 4, RowMajor).Validate())
	require.NoError(t, Dense(data, 0, 4, RowMajor).Validate())
	require.Error(t, Dense(data, 4, 4, RowMajor).Validate())
	require.Error(t, Padded(data, 4, 3, 3, 4, ColumnMajor).Validate())
	require.Error(t, Dense(data, 3, 4, RowMajor).Slice(0, 0, 0, 1, 3, 4).Validate())
	require.Error(t, Dense(data, 3, 4, RowMajor).Slice(0, 0, 2, 1, 3, 4).Validate())
	require.Error(t, Dense(data, 3, 4, Layout(7)).Validate())

	v := Vector(data)
	require.NoError(t, v.Validate())
	assert.Equal(t, 12, v.Size)
	require.Error(t, VectorView[float64]{Data: data, Start: 2, Stride: 3, Size: 5}.Validate())
	require.NoError(t, VectorView[float64]{Data: data, Start: 2, Stride: 3, Size: 5}.Sub(0, 3).Validate())
}

func TestParseLayout(t *testing.T) {
	for s, want := range map[string]Layout{"row": RowMajor, "Row_Major": RowMajor, "col": ColumnMajor, "ColumnMajor": ColumnMajor} {
		got, err := ParseLayout(s)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ParseLayout(%q)", s)
	}
	_, err := ParseLayout("diagonal")
	require.Error(t, err)
}
