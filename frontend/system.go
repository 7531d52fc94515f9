// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import (
	"errors"
	"fmt"

	"github.com/consensys/grille/field"
	"github.com/consensys/grille/logger"
)

// Gate is a named set of polynomial identities guarded by a selector: every
// polynomial must evaluate to zero at each row where the selector is active.
type Gate[E any] struct {
	Name     string
	Selector Selector
	Polys    []Expression[E]
}

// Degree returns the maximum degree among the gate's polynomials.
func (g Gate[E]) Degree() int {
	d := 0
	for _, p := range g.Polys {
		d = max(d, p.Degree())
	}
	return d
}

type polyKey struct {
	selector int
	hash     [16]byte
}

// ConstraintSystem holds a circuit's configuration: its columns, selectors,
// gates and equality-enabled column set. It is built once, before any
// witness exists, and is reused read-only across witnesses.
//
// A ConstraintSystem is not safe for concurrent mutation; once sealed (by
// Configure or ReadFrom) it is immutable and safe to share.
type ConstraintSystem[E any] struct {
	f field.Field[E]

	nbAdvice    int
	nbFixed     int
	nbInstance  int
	nbSelectors int

	gates    []Gate[E]
	equality map[Column]struct{}

	constants    Column
	hasConstants bool

	polyHashes map[polyKey]string

	sealed bool
}

// NewSystem returns an empty, unsealed constraint system over f. Circuits
// normally never call this directly; Configure does.
func NewSystem[E any](f field.Field[E]) *ConstraintSystem[E] {
	return newSystem(f, 0)
}

func newSystem[E any](f field.Field[E], capacity int) *ConstraintSystem[E] {
	return &ConstraintSystem[E]{
		f:          f,
		gates:      make([]Gate[E], 0, capacity),
		equality:   make(map[Column]struct{}),
		polyHashes: make(map[polyKey]string, capacity),
	}
}

// Field returns the field the system is defined over.
func (cs *ConstraintSystem[E]) Field() field.Field[E] {
	return cs.f
}

func (cs *ConstraintSystem[E]) mustNotBeSealed() {
	if cs.sealed {
		panic(fmt.Errorf("%w: constraint system is sealed", ErrConfiguration))
	}
}

// AdviceColumn declares a witness-holding column. It panics if the system is
// sealed.
func (cs *ConstraintSystem[E]) AdviceColumn() Column {
	cs.mustNotBeSealed()
	c := Column{Kind: Advice, Index: cs.nbAdvice}
	cs.nbAdvice++
	return c
}

// FixedColumn declares a circuit-wide constant column. It panics if the
// system is sealed.
func (cs *ConstraintSystem[E]) FixedColumn() Column {
	cs.mustNotBeSealed()
	c := Column{Kind: Fixed, Index: cs.nbFixed}
	cs.nbFixed++
	return c
}

// InstanceColumn declares a public-input column. It panics if the system is
// sealed.
func (cs *ConstraintSystem[E]) InstanceColumn() Column {
	cs.mustNotBeSealed()
	c := Column{Kind: Instance, Index: cs.nbInstance}
	cs.nbInstance++
	return c
}

// Selector declares a selector. It panics if the system is sealed.
func (cs *ConstraintSystem[E]) Selector() Selector {
	cs.mustNotBeSealed()
	s := Selector{index: cs.nbSelectors}
	cs.nbSelectors++
	return s
}

// EnableEquality marks col as eligible to participate in equality
// constraints. It must be called during configuration.
func (cs *ConstraintSystem[E]) EnableEquality(col Column) error {
	if cs.sealed {
		return fmt.Errorf("%w: EnableEquality on a sealed system", ErrConfiguration)
	}
	if !cs.columnExists(col) {
		return fmt.Errorf("%w: column %s not declared", ErrConfiguration, col)
	}
	cs.equality[col] = struct{}{}
	return nil
}

// EnableConstant marks col, a fixed column, as the canonical source of
// literal constants, and enables equality on it. A system has at most one
// constants column.
func (cs *ConstraintSystem[E]) EnableConstant(col Column) error {
	if cs.sealed {
		return fmt.Errorf("%w: EnableConstant on a sealed system", ErrConfiguration)
	}
	if col.Kind != Fixed {
		return fmt.Errorf("%w: constants column must be fixed, got %s", ErrConfiguration, col)
	}
	if !cs.columnExists(col) {
		return fmt.Errorf("%w: column %s not declared", ErrConfiguration, col)
	}
	if cs.hasConstants {
		return fmt.Errorf("%w: constants column already set to %s", ErrConfiguration, cs.constants)
	}
	cs.constants = col
	cs.hasConstants = true
	return cs.EnableEquality(col)
}

// CreateGate registers a gate named name, guarded by sel. build receives a
// VirtualCells to query columns and selectors, and returns the gate's
// polynomials; each must evaluate to zero at every row where sel is active.
func (cs *ConstraintSystem[E]) CreateGate(name string, sel Selector, build func(v *VirtualCells[E]) []Expression[E]) error {
	if cs.sealed {
		return fmt.Errorf("%w: CreateGate on a sealed system", ErrConfiguration)
	}
	if name == "" {
		return fmt.Errorf("%w: gate name is empty", ErrConfiguration)
	}
	if build == nil {
		return fmt.Errorf("%w: gate %q has no builder", ErrConfiguration, name)
	}
	if sel.index >= cs.nbSelectors {
		return fmt.Errorf("%w: gate %q: %s not declared", ErrConfiguration, name, sel)
	}

	v := &VirtualCells[E]{cs: cs}
	polys := build(v)
	if v.err != nil {
		return fmt.Errorf("gate %q: %w", name, v.err)
	}
	if len(polys) == 0 {
		return fmt.Errorf("%w: gate %q returned no polynomial", ErrConfiguration, name)
	}
	for i, p := range polys {
		if p == nil {
			return fmt.Errorf("%w: gate %q: polynomial %d is nil", ErrConfiguration, name, i)
		}
	}

	cs.addGate(Gate[E]{Name: name, Selector: sel, Polys: polys})
	return nil
}

// addGate appends g and records its polynomial hashes, warning on a
// duplicate polynomial under the same selector.
func (cs *ConstraintSystem[E]) addGate(g Gate[E]) {
	log := logger.Logger()
	for _, p := range g.Polys {
		key := polyKey{selector: g.Selector.index, hash: HashCode(p, cs.f)}
		if prev, ok := cs.polyHashes[key]; ok {
			log.Warn().Str("gate", g.Name).Str("previous", prev).Msg("duplicate gate polynomial")
			continue
		}
		cs.polyHashes[key] = g.Name
	}
	cs.gates = append(cs.gates, g)
}

// Gates returns the declared gates in declaration order. The slice is a
// copy; the expressions are shared.
func (cs *ConstraintSystem[E]) Gates() []Gate[E] {
	out := make([]Gate[E], len(cs.gates))
	copy(out, cs.gates)
	return out
}

// NbAdviceColumns returns the number of declared advice columns.
func (cs *ConstraintSystem[E]) NbAdviceColumns() int { return cs.nbAdvice }

// NbFixedColumns returns the number of declared fixed columns.
func (cs *ConstraintSystem[E]) NbFixedColumns() int { return cs.nbFixed }

// NbInstanceColumns returns the number of declared instance columns.
func (cs *ConstraintSystem[E]) NbInstanceColumns() int { return cs.nbInstance }

// NbSelectors returns the number of declared selectors.
func (cs *ConstraintSystem[E]) NbSelectors() int { return cs.nbSelectors }

// NbGates returns the number of registered gates.
func (cs *ConstraintSystem[E]) NbGates() int { return len(cs.gates) }

// EqualityEnabled reports whether col may participate in equality
// constraints.
func (cs *ConstraintSystem[E]) EqualityEnabled(col Column) bool {
	_, ok := cs.equality[col]
	return ok
}

// ConstantsColumn returns the constants column, if EnableConstant was
// called.
func (cs *ConstraintSystem[E]) ConstantsColumn() (Column, bool) {
	return cs.constants, cs.hasConstants
}

func (cs *ConstraintSystem[E]) columnExists(col Column) bool {
	switch col.Kind {
	case Advice:
		return col.Index >= 0 && col.Index < cs.nbAdvice
	case Fixed:
		return col.Index >= 0 && col.Index < cs.nbFixed
	case Instance:
		return col.Index >= 0 && col.Index < cs.nbInstance
	default:
		return false
	}
}

func (cs *ConstraintSystem[E]) seal() {
	cs.sealed = true
}

// VirtualCells builds the cell queries of one gate. Query errors accumulate
// and are reported by CreateGate; a failed query returns the zero constant
// so the builder can proceed.
type VirtualCells[E any] struct {
	cs  *ConstraintSystem[E]
	err error
}

func (v *VirtualCells[E]) fail(err error) {
	v.err = errors.Join(v.err, err)
}

func (v *VirtualCells[E]) queryColumn(col Column, kind ColumnKind) bool {
	if col.Kind != kind {
		v.fail(fmt.Errorf("%w: cannot query %s as %s", ErrConfiguration, col, kind))
		return false
	}
	if !v.cs.columnExists(col) {
		v.fail(fmt.Errorf("%w: column %s not declared", ErrConfiguration, col))
		return false
	}
	return true
}

// QueryAdvice returns the query of advice column col at rotation rot.
func (v *VirtualCells[E]) QueryAdvice(col Column, rot Rotation) Expression[E] {
	if !v.queryColumn(col, Advice) {
		return Constant(v.cs.f.Zero())
	}
	return adviceQuery[E]{col: col, rot: rot}
}

// QueryFixed returns the query of fixed column col at rotation rot.
func (v *VirtualCells[E]) QueryFixed(col Column, rot Rotation) Expression[E] {
	if !v.queryColumn(col, Fixed) {
		return Constant(v.cs.f.Zero())
	}
	return fixedQuery[E]{col: col, rot: rot}
}

// QueryInstance returns the query of instance column col at rotation rot.
func (v *VirtualCells[E]) QueryInstance(col Column, rot Rotation) Expression[E] {
	if !v.queryColumn(col, Instance) {
		return Constant(v.cs.f.Zero())
	}
	return instanceQuery[E]{col: col, rot: rot}
}

// QuerySelector returns the query of sel, evaluating to one where active and
// zero elsewhere. The gate's own guarding selector does not need to be
// queried; it is implicit.
func (v *VirtualCells[E]) QuerySelector(s Selector) Expression[E] {
	if s.index >= v.cs.nbSelectors {
		v.fail(fmt.Errorf("%w: %s not declared", ErrConfiguration, s))
		return Constant(v.cs.f.Zero())
	}
	return selectorQuery[E]{sel: s}
}
