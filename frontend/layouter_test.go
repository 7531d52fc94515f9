// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import (
	"errors"
	"fmt"
	"testing"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/consensys/grille/field"
	"github.com/consensys/grille/field/bn254"
)

// opLog is an Assignment backend recording every call in order.
type opLog struct {
	f        field.Field[fr.Element]
	ops      []string
	instance map[cellKey]fr.Element
}

func newOpLog(f field.Field[fr.Element]) *opLog {
	return &opLog{f: f, instance: make(map[cellKey]fr.Element)}
}

func (b *opLog) log(format string, args ...interface{}) {
	b.ops = append(b.ops, fmt.Sprintf(format, args...))
}

func (b *opLog) EnterRegion(name string) { b.log("enter %s", name) }
func (b *opLog) ExitRegion()             { b.log("exit") }

func (b *opLog) EnableSelector(s Selector, row int) error {
	b.log("enable %s at row %d", s, row)
	return nil
}

func (b *opLog) AssignAdvice(col Column, row int, v Value[fr.Element]) error {
	if val, ok := v.Get(); ok {
		b.log("assign %s = %s", Cell{Column: col, Row: row}, b.f.String(val))
	} else {
		b.log("assign %s = ?", Cell{Column: col, Row: row})
	}
	return nil
}

func (b *opLog) AssignFixed(col Column, row int, c fr.Element) error {
	b.log("fix %s = %s", Cell{Column: col, Row: row}, b.f.String(c))
	return nil
}

func (b *opLog) Copy(a, c Cell) error {
	b.log("copy %s = %s", a, c)
	return nil
}

func (b *opLog) InstanceValue(col Column, row int) (Value[fr.Element], error) {
	if v, ok := b.instance[cellKey{col.Index, row}]; ok {
		return Known(v), nil
	}
	return Known(b.f.Zero()), nil
}

func TestLayouterRegionPlacement(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs := NewSystem(f)
	colA := cs.AdviceColumn()
	colF := cs.FixedColumn()
	sel := cs.Selector()
	cs.seal()

	backend := newOpLog(f)
	l, err := NewLayouter[fr.Element](cs, 8, backend)
	assert.NoError(err)

	assert.NoError(l.AssignRegion("first", func(r Region[fr.Element]) error {
		if _, err := r.AssignAdvice(colA, 0, Known(f.FromUint64(1))); err != nil {
			return err
		}
		_, err := r.AssignAdvice(colA, 2, Known(f.FromUint64(2)))
		return err
	}))

	// a region that assigns nothing occupies no rows
	assert.NoError(l.AssignRegion("empty", func(r Region[fr.Element]) error {
		return nil
	}))

	assert.NoError(l.AssignRegion("second", func(r Region[fr.Element]) error {
		if err := r.EnableSelector(sel, 0); err != nil {
			return err
		}
		_, err := r.AssignFixed(colF, 1, f.FromUint64(9))
		return err
	}))

	assert.Equal([]string{
		"enter first",
		"assign (advice[0], row 0) = 1",
		"assign (advice[0], row 2) = 2",
		"exit",
		"enter empty",
		"exit",
		"enter second",
		"enable selector[0] at row 3",
		"fix (fixed[0], row 4) = 9",
		"exit",
	}, backend.ops)
}

func TestLayouterErrors(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs := NewSystem(f)
	colA := cs.AdviceColumn()
	colF := cs.FixedColumn()
	instance := cs.InstanceColumn()
	assert.NoError(cs.EnableEquality(colA))
	assert.NoError(cs.EnableEquality(instance))
	cs.seal()

	_, err := NewLayouter[fr.Element](nil, 4, newOpLog(f))
	assert.ErrorIs(err, ErrConfiguration)
	_, err = NewLayouter[fr.Element](cs, 0, newOpLog(f))
	assert.ErrorIs(err, ErrConfiguration)
	_, err = NewLayouter[fr.Element](cs, 4, nil)
	assert.ErrorIs(err, ErrConfiguration)

	l, err := NewLayouter[fr.Element](cs, 4, newOpLog(f))
	assert.NoError(err)

	assert.ErrorIs(l.AssignRegion("no body", nil), ErrSynthesis)

	assert.ErrorIs(l.AssignRegion("outer", func(r Region[fr.Element]) error {
		return l.AssignRegion("inner", func(Region[fr.Element]) error { return nil })
	}), ErrSynthesis)

	assert.ErrorIs(l.AssignRegion("negative offset", func(r Region[fr.Element]) error {
		_, err := r.AssignAdvice(colA, -1, Known(f.One()))
		return err
	}), ErrSynthesis)

	assert.ErrorIs(l.AssignRegion("past the end", func(r Region[fr.Element]) error {
		_, err := r.AssignAdvice(colA, 4, Known(f.One()))
		return err
	}), ErrSynthesis)

	assert.ErrorIs(l.AssignRegion("fixed as advice", func(r Region[fr.Element]) error {
		_, err := r.AssignAdvice(colF, 0, Known(f.One()))
		return err
	}), ErrSynthesis)

	assert.ErrorIs(l.AssignRegion("undeclared selector", func(r Region[fr.Element]) error {
		return r.EnableSelector(Selector{index: 7}, 0)
	}), ErrSynthesis)

	// both sides of a copy need equality enabled
	assert.ErrorIs(l.AssignRegion("no equality", func(r Region[fr.Element]) error {
		a, err := r.AssignAdvice(colA, 0, Known(f.One()))
		if err != nil {
			return err
		}
		return r.ConstrainEqual(a, Cell{Column: colF, Row: 0})
	}), ErrConfiguration)

	// constants require EnableConstant during configuration
	assert.ErrorIs(l.AssignRegion("no constants column", func(r Region[fr.Element]) error {
		_, err := r.AssignAdviceFromConstant(colA, 0, f.One())
		return err
	}), ErrConfiguration)

	boom := errors.New("boom")
	err = l.AssignRegion("failing", func(r Region[fr.Element]) error { return boom })
	assert.ErrorIs(err, ErrSynthesis)
	assert.ErrorIs(err, boom)
	assert.ErrorContains(err, `region "failing"`)
}

func TestLayouterConstrainInstance(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs := NewSystem(f)
	colA := cs.AdviceColumn()
	instance := cs.InstanceColumn()
	assert.NoError(cs.EnableEquality(colA))
	assert.NoError(cs.EnableEquality(instance))
	cs.seal()

	backend := newOpLog(f)
	l, err := NewLayouter[fr.Element](cs, 4, backend)
	assert.NoError(err)

	var out Cell
	assert.NoError(l.AssignRegion("value", func(r Region[fr.Element]) error {
		var err error
		out, err = r.AssignAdvice(colA, 0, Known(f.One()))
		return err
	}))

	assert.ErrorIs(l.ConstrainInstance(out, colA, 0), ErrConfiguration, "target must be an instance column")
	assert.ErrorIs(l.ConstrainInstance(out, Column{Kind: Instance, Index: 3}, 0), ErrConfiguration)
	assert.ErrorIs(l.ConstrainInstance(out, instance, 4), ErrConfiguration, "public row outside the grid")
	assert.ErrorIs(l.ConstrainInstance(out, instance, -1), ErrConfiguration)

	assert.NoError(l.ConstrainInstance(out, instance, 1))
	assert.Equal("copy (advice[0], row 0) = (instance[0], row 1)", backend.ops[len(backend.ops)-1])
}

func TestLayouterConstants(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs := NewSystem(f)
	colA := cs.AdviceColumn()
	constants := cs.FixedColumn()
	assert.NoError(cs.EnableConstant(constants))
	assert.NoError(cs.EnableEquality(colA))
	cs.seal()

	backend := newOpLog(f)
	l, err := NewLayouter[fr.Element](cs, 2, backend)
	assert.NoError(err)

	assert.NoError(l.AssignRegion("pinned", func(r Region[fr.Element]) error {
		if _, err := r.AssignAdviceFromConstant(colA, 0, f.FromUint64(7)); err != nil {
			return err
		}
		cell, err := r.AssignAdvice(colA, 1, Known(f.FromUint64(8)))
		if err != nil {
			return err
		}
		return r.ConstrainConstant(cell, f.FromUint64(8))
	}))

	assert.Equal([]string{
		"enter pinned",
		"fix (fixed[0], row 0) = 7",
		"assign (advice[0], row 0) = 7",
		"copy (advice[0], row 0) = (fixed[0], row 0)",
		"assign (advice[0], row 1) = 8",
		"fix (fixed[0], row 1) = 8",
		"copy (advice[0], row 1) = (fixed[0], row 1)",
		"exit",
	}, backend.ops)

	// the constants column is full now
	assert.ErrorIs(l.AssignRegion("overflow", func(r Region[fr.Element]) error {
		return r.ConstrainConstant(Cell{Column: colA, Row: 0}, f.One())
	}), ErrSynthesis)
}

func TestLayouterFromInstance(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs := NewSystem(f)
	colA := cs.AdviceColumn()
	instance := cs.InstanceColumn()
	assert.NoError(cs.EnableEquality(colA))
	assert.NoError(cs.EnableEquality(instance))
	cs.seal()

	backend := newOpLog(f)
	backend.instance[cellKey{0, 1}] = f.FromUint64(42)
	l, err := NewLayouter[fr.Element](cs, 4, backend)
	assert.NoError(err)

	assert.NoError(l.AssignRegion("seeded", func(r Region[fr.Element]) error {
		if _, err := r.AssignAdviceFromInstance(instance, 1, colA, 0); err != nil {
			return err
		}
		// beyond the public vector the instance reads zero
		_, err := r.AssignAdviceFromInstance(instance, 3, colA, 1)
		return err
	}))

	assert.ErrorIs(l.AssignRegion("bad instance row", func(r Region[fr.Element]) error {
		_, err := r.AssignAdviceFromInstance(instance, 4, colA, 2)
		return err
	}), ErrConfiguration)

	assert.ErrorIs(l.AssignRegion("not an instance column", func(r Region[fr.Element]) error {
		_, err := r.AssignAdviceFromInstance(colA, 0, colA, 2)
		return err
	}), ErrSynthesis)

	assert.Equal([]string{
		"enter seeded",
		"assign (advice[0], row 0) = 42",
		"copy (advice[0], row 0) = (instance[0], row 1)",
		"assign (advice[0], row 1) = 0",
		"copy (advice[0], row 1) = (instance[0], row 3)",
		"exit",
		"enter bad instance row",
		"exit",
		"enter not an instance column",
		"exit",
	}, backend.ops)
}
