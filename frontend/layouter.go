// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import (
	"errors"
	"fmt"
)

// Assignment is the write interface a backend exposes to the layouter; it is
// the boundary between circuit synthesis and whatever consumes the filled
// grid. The mock prover implements it to check satisfiability; a real
// proving backend implements it to commit to columns.
//
// Rows passed to Assignment are absolute. Region bookkeeping, equality
// enablement and grid bounds are validated by the layouter before the calls
// reach the backend.
type Assignment[E any] interface {
	// EnterRegion and ExitRegion bracket the writes of one region, for
	// diagnostics only.
	EnterRegion(name string)
	ExitRegion()

	// EnableSelector activates s at the given row. Activation is idempotent.
	EnableSelector(s Selector, row int) error

	// AssignAdvice writes a witness value. Cells are write-once per witness.
	AssignAdvice(col Column, row int, v Value[E]) error

	// AssignFixed writes a circuit-shape constant. Cells are write-once.
	AssignFixed(col Column, row int, c E) error

	// Copy records the equality constraint a = b.
	Copy(a, b Cell) error

	// InstanceValue returns the public input at (col, row). Rows beyond the
	// supplied public vector hold zero.
	InstanceValue(col Column, row int) (Value[E], error)
}

// Layouter places regions on the grid and registers public-input exposures.
type Layouter[E any] interface {
	// AssignRegion lays out a named contiguous region and runs body against
	// it. Offsets inside the region are relative to the region's first row.
	AssignRegion(name string, body func(r Region[E]) error) error

	// ConstrainInstance constrains an assigned cell to equal the public
	// input at (col, row), exposing it.
	ConstrainInstance(cell Cell, col Column, row int) error
}

// Region is the region-scoped writer handed to an AssignRegion body.
type Region[E any] interface {
	// EnableSelector activates s at the region-relative offset.
	EnableSelector(s Selector, offset int) error

	// AssignAdvice writes a witness value and returns the assigned cell.
	AssignAdvice(col Column, offset int, v Value[E]) (Cell, error)

	// AssignFixed writes a circuit-shape constant.
	AssignFixed(col Column, offset int, c E) (Cell, error)

	// AssignAdviceFromConstant assigns c to an advice cell and pins the cell
	// to c via the constants column.
	AssignAdviceFromConstant(col Column, offset int, c E) (Cell, error)

	// AssignAdviceFromInstance assigns the public input at
	// (instance, instanceRow) to an advice cell and constrains the two
	// equal.
	AssignAdviceFromInstance(instance Column, instanceRow int, col Column, offset int) (Cell, error)

	// ConstrainEqual records the equality constraint a = b. Both cells must
	// lie in equality-enabled columns.
	ConstrainEqual(a, b Cell) error

	// ConstrainConstant pins an assigned cell to c via the constants column.
	ConstrainConstant(cell Cell, c E) error
}

// NewLayouter returns a single-pass layouter over n rows: regions are placed
// top-down in call order, each starting at the first row past the previous
// region, and literal constants fill the constants column from row zero.
func NewLayouter[E any](cs *ConstraintSystem[E], n int, backend Assignment[E]) (Layouter[E], error) {
	if cs == nil {
		return nil, fmt.Errorf("%w: nil constraint system", ErrConfiguration)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrConfiguration)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: grid must have at least one row, got %d", ErrConfiguration, n)
	}
	return &singleLayouter[E]{cs: cs, n: n, backend: backend}, nil
}

type singleLayouter[E any] struct {
	cs      *ConstraintSystem[E]
	n       int
	backend Assignment[E]

	cursor          int // first free region row
	constantsCursor int
	inRegion        bool
}

func (l *singleLayouter[E]) AssignRegion(name string, body func(r Region[E]) error) error {
	if body == nil {
		return fmt.Errorf("%w: region %q has no body", ErrSynthesis, name)
	}
	if l.inRegion {
		return fmt.Errorf("%w: AssignRegion within region %q", ErrSynthesis, name)
	}
	l.inRegion = true
	defer func() { l.inRegion = false }()

	r := &region[E]{l: l, name: name, start: l.cursor}
	l.backend.EnterRegion(name)
	err := body(r)
	l.backend.ExitRegion()
	if err != nil {
		if !errors.Is(err, ErrSynthesis) && !errors.Is(err, ErrConfiguration) {
			err = fmt.Errorf("%w: %w", ErrSynthesis, err)
		}
		return fmt.Errorf("region %q: %w", name, err)
	}

	l.cursor += r.height
	return nil
}

func (l *singleLayouter[E]) ConstrainInstance(cell Cell, col Column, row int) error {
	if col.Kind != Instance {
		return fmt.Errorf("%w: %s is not an instance column", ErrConfiguration, col)
	}
	if !l.cs.columnExists(col) {
		return fmt.Errorf("%w: column %s not declared", ErrConfiguration, col)
	}
	if err := l.equalityEnabled(col, cell.Column); err != nil {
		return err
	}
	if row < 0 || row >= l.n {
		return fmt.Errorf("%w: public row %d outside the %d-row grid", ErrConfiguration, row, l.n)
	}
	if cell.Row < 0 || cell.Row >= l.n {
		return fmt.Errorf("%w: cell %s outside the %d-row grid", ErrConfiguration, cell, l.n)
	}
	return l.backend.Copy(cell, Cell{Column: col, Row: row})
}

func (l *singleLayouter[E]) equalityEnabled(cols ...Column) error {
	for _, col := range cols {
		if !l.cs.EqualityEnabled(col) {
			return fmt.Errorf("%w: equality not enabled on %s", ErrConfiguration, col)
		}
	}
	return nil
}

// nextConstant writes c to the next free row of the constants column.
func (l *singleLayouter[E]) nextConstant(c E) (Cell, error) {
	col, ok := l.cs.ConstantsColumn()
	if !ok {
		return Cell{}, fmt.Errorf("%w: no constants column (EnableConstant was not called)", ErrConfiguration)
	}
	if l.constantsCursor >= l.n {
		return Cell{}, fmt.Errorf("%w: constants column exhausted (%d rows)", ErrSynthesis, l.n)
	}
	cell := Cell{Column: col, Row: l.constantsCursor}
	if err := l.backend.AssignFixed(col, cell.Row, c); err != nil {
		return Cell{}, err
	}
	l.constantsCursor++
	return cell, nil
}

type region[E any] struct {
	l      *singleLayouter[E]
	name   string
	start  int
	height int
}

// row resolves a region-relative offset to an absolute row, growing the
// region.
func (r *region[E]) row(offset int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrSynthesis, offset)
	}
	row := r.start + offset
	if row >= r.l.n {
		return 0, fmt.Errorf("%w: row %d outside the %d-row grid", ErrSynthesis, row, r.l.n)
	}
	if offset+1 > r.height {
		r.height = offset + 1
	}
	return row, nil
}

func (r *region[E]) EnableSelector(s Selector, offset int) error {
	if s.index >= r.l.cs.nbSelectors {
		return fmt.Errorf("%w: %s not declared", ErrSynthesis, s)
	}
	row, err := r.row(offset)
	if err != nil {
		return err
	}
	return r.l.backend.EnableSelector(s, row)
}

func (r *region[E]) AssignAdvice(col Column, offset int, v Value[E]) (Cell, error) {
	if col.Kind != Advice || !r.l.cs.columnExists(col) {
		return Cell{}, fmt.Errorf("%w: %s is not a declared advice column", ErrSynthesis, col)
	}
	row, err := r.row(offset)
	if err != nil {
		return Cell{}, err
	}
	cell := Cell{Column: col, Row: row}
	if err := r.l.backend.AssignAdvice(col, row, v); err != nil {
		return Cell{}, err
	}
	return cell, nil
}

func (r *region[E]) AssignFixed(col Column, offset int, c E) (Cell, error) {
	if col.Kind != Fixed || !r.l.cs.columnExists(col) {
		return Cell{}, fmt.Errorf("%w: %s is not a declared fixed column", ErrSynthesis, col)
	}
	row, err := r.row(offset)
	if err != nil {
		return Cell{}, err
	}
	cell := Cell{Column: col, Row: row}
	if err := r.l.backend.AssignFixed(col, row, c); err != nil {
		return Cell{}, err
	}
	return cell, nil
}

func (r *region[E]) AssignAdviceFromConstant(col Column, offset int, c E) (Cell, error) {
	if err := r.l.equalityEnabled(col); err != nil {
		return Cell{}, err
	}
	constCell, err := r.l.nextConstant(c)
	if err != nil {
		return Cell{}, err
	}
	cell, err := r.AssignAdvice(col, offset, Known(c))
	if err != nil {
		return Cell{}, err
	}
	return cell, r.l.backend.Copy(cell, constCell)
}

func (r *region[E]) AssignAdviceFromInstance(instance Column, instanceRow int, col Column, offset int) (Cell, error) {
	if instance.Kind != Instance || !r.l.cs.columnExists(instance) {
		return Cell{}, fmt.Errorf("%w: %s is not a declared instance column", ErrSynthesis, instance)
	}
	if err := r.l.equalityEnabled(instance, col); err != nil {
		return Cell{}, err
	}
	if instanceRow < 0 || instanceRow >= r.l.n {
		return Cell{}, fmt.Errorf("%w: public row %d outside the %d-row grid", ErrConfiguration, instanceRow, r.l.n)
	}
	v, err := r.l.backend.InstanceValue(instance, instanceRow)
	if err != nil {
		return Cell{}, err
	}
	cell, err := r.AssignAdvice(col, offset, v)
	if err != nil {
		return Cell{}, err
	}
	return cell, r.l.backend.Copy(cell, Cell{Column: instance, Row: instanceRow})
}

func (r *region[E]) ConstrainEqual(a, b Cell) error {
	if err := r.l.equalityEnabled(a.Column, b.Column); err != nil {
		return err
	}
	for _, cell := range [...]Cell{a, b} {
		if cell.Row < 0 || cell.Row >= r.l.n {
			return fmt.Errorf("%w: cell %s outside the %d-row grid", ErrSynthesis, cell, r.l.n)
		}
	}
	return r.l.backend.Copy(a, b)
}

func (r *region[E]) ConstrainConstant(cell Cell, c E) error {
	if err := r.l.equalityEnabled(cell.Column); err != nil {
		return err
	}
	if cell.Row < 0 || cell.Row >= r.l.n {
		return fmt.Errorf("%w: cell %s outside the %d-row grid", ErrSynthesis, cell, r.l.n)
	}
	constCell, err := r.l.nextConstant(c)
	if err != nil {
		return err
	}
	return r.l.backend.Copy(cell, constCell)
}
