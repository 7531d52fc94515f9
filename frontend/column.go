// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import "fmt"

// ColumnKind discriminates the three column types of the grid.
type ColumnKind uint8

const (
	// Advice columns hold witness values and vary per proof instance.
	Advice ColumnKind = iota + 1
	// Fixed columns hold circuit-wide constants, identical across all
	// instances of the same circuit shape.
	Fixed
	// Instance columns hold public inputs, supplied alongside each witness.
	Instance
)

func (k ColumnKind) String() string {
	switch k {
	case Advice:
		return "advice"
	case Fixed:
		return "fixed"
	case Instance:
		return "instance"
	default:
		return fmt.Sprintf("column-kind(%d)", uint8(k))
	}
}

// Column identifies a declared column by kind and per-kind index. The kind
// is immutable once the column is declared.
type Column struct {
	Kind  ColumnKind
	Index int
}

func (c Column) String() string {
	return fmt.Sprintf("%s[%d]", c.Kind, c.Index)
}

// Cell addresses a single grid cell.
type Cell struct {
	Column Column
	Row    int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%s, row %d)", c.Column, c.Row)
}

// Selector is a handle on a boolean-valued pseudo-column. At each row a
// selector is either active or inactive; a gate's identities are enforced
// only at rows where its selector is active.
type Selector struct {
	index int
}

// Index returns the selector's position in declaration order.
func (s Selector) Index() int {
	return s.index
}

func (s Selector) String() string {
	return fmt.Sprintf("selector[%d]", s.index)
}

// Rotation is a relative row offset applied to a cell query: 0 queries the
// current row, 1 the next, -1 the previous. Queries whose rotated row falls
// outside the grid evaluate to zero.
type Rotation int
