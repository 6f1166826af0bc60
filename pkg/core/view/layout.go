// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package view

import (
	"strings"

	"github.com/pkg/errors"
)

// Layout is the physical ordering of a matrix buffer.
type Layout int

const (
	// RowMajor stores consecutive columns of a row next to each other.
	RowMajor Layout = iota

	// ColumnMajor stores consecutive rows of a column next to each other.
	ColumnMajor
)

// String implements fmt.Stringer.
func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "RowMajor"
	case ColumnMajor:
		return "ColumnMajor"
	}
	return "InvalidLayout"
}

// ParseLayout accepts "row", "row_major", "rowmajor" (and the column equivalents), case-insensitive.
func ParseLayout(s string) (Layout, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "") {
	case "row", "rowmajor":
		return RowMajor, nil
	case "col", "column", "columnmajor", "colmajor":
		return ColumnMajor, nil
	}
	return RowMajor, errors.Errorf("unknown layout %q", s)
}
