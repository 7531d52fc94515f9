// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package mock

import (
	"testing"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/consensys/grille/field"
	"github.com/consensys/grille/field/bn254"
	"github.com/consensys/grille/frontend"
)

// rowSum checks a + b = out on every row it fills and pins the last out cell
// to the first public input. skipOut leaves the out cell of one row
// unassigned; negative means none.
type rowSum struct {
	f       field.Field[fr.Element]
	rows    [][3]uint64
	skipOut int

	colA, colB, colOut frontend.Column
	instance           frontend.Column
	sel                frontend.Selector
}

func newRowSum(rows [][3]uint64) *rowSum {
	return &rowSum{f: bn254.New(), rows: rows, skipOut: -1}
}

func (c *rowSum) Configure(cs *frontend.ConstraintSystem[fr.Element]) error {
	c.colA = cs.AdviceColumn()
	c.colB = cs.AdviceColumn()
	c.colOut = cs.AdviceColumn()
	c.instance = cs.InstanceColumn()
	for _, col := range []frontend.Column{c.colOut, c.instance} {
		if err := cs.EnableEquality(col); err != nil {
			return err
		}
	}
	c.sel = cs.Selector()
	err := cs.CreateGate("sum", c.sel, func(v *frontend.VirtualCells[fr.Element]) []frontend.Expression[fr.Element] {
		a := v.QueryAdvice(c.colA, 0)
		b := v.QueryAdvice(c.colB, 0)
		out := v.QueryAdvice(c.colOut, 0)
		return []frontend.Expression[fr.Element]{frontend.Sub(frontend.Add(a, b), out)}
	})
	return err
}

func (c *rowSum) Synthesize(l frontend.Layouter[fr.Element]) error {
	var last frontend.Cell
	err := l.AssignRegion("rows", func(r frontend.Region[fr.Element]) error {
		for i, row := range c.rows {
			if err := r.EnableSelector(c.sel, i); err != nil {
				return err
			}
			if _, err := r.AssignAdvice(c.colA, i, frontend.Known(c.f.FromUint64(row[0]))); err != nil {
				return err
			}
			if _, err := r.AssignAdvice(c.colB, i, frontend.Known(c.f.FromUint64(row[1]))); err != nil {
				return err
			}
			if i == c.skipOut {
				continue
			}
			cell, err := r.AssignAdvice(c.colOut, i, frontend.Known(c.f.FromUint64(row[2])))
			if err != nil {
				return err
			}
			last = cell
		}
		return nil
	})
	if err != nil {
		return err
	}
	return l.ConstrainInstance(last, c.instance, 0)
}

func TestRunSatisfied(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	circuit := newRowSum([][3]uint64{{1, 2, 3}, {4, 5, 9}})
	p, err := Run(f, circuit, 2, [][]fr.Element{{f.FromUint64(9)}})
	assert.NoError(err)

	assert.Equal(2, p.K())
	assert.Equal(4, p.NbRows())
	assert.NotNil(p.ConstraintSystem())
	assert.Nil(p.Verify())
	assert.Nil(p.VerifyParallel())

	assert.Len(p.copies, 1)
	assert.Equal([]regionSpan{{name: "rows", min: 0, max: 1}}, p.regions)
	assert.Equal("rows", p.regionAt(1))
	assert.Equal("", p.regionAt(2))
}

func TestRunSingleRowGrid(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	p, err := Run(f, newRowSum([][3]uint64{{2, 3, 5}}), 0, [][]fr.Element{{f.FromUint64(5)}})
	assert.NoError(err)
	assert.Equal(1, p.NbRows())
	assert.Nil(p.Verify())

	// two rows cannot fit a single-row grid
	_, err = Run(f, newRowSum([][3]uint64{{1, 1, 2}, {2, 2, 4}}), 0, [][]fr.Element{{f.FromUint64(4)}})
	assert.ErrorIs(err, frontend.ErrSynthesis)
}

func TestRunWithConstraintSystemReuse(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	circuit := newRowSum([][3]uint64{{1, 2, 3}})
	cs, err := frontend.Configure(f, circuit)
	assert.NoError(err)

	p1, err := RunWithConstraintSystem(cs, circuit, 1, [][]fr.Element{{f.FromUint64(3)}})
	assert.NoError(err)
	assert.Nil(p1.Verify())

	// same shape, fresh witness
	circuit.rows = [][3]uint64{{2, 2, 4}, {3, 4, 7}}
	p2, err := RunWithConstraintSystem(cs, circuit, 1, [][]fr.Element{{f.FromUint64(7)}})
	assert.NoError(err)
	assert.Nil(p2.Verify())
	assert.Same(cs, p2.ConstraintSystem())
}

func TestNewValidation(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs, err := frontend.Configure(f, newRowSum(nil))
	assert.NoError(err)

	_, err = New[fr.Element](nil, 2, nil)
	assert.ErrorIs(err, frontend.ErrConfiguration)

	for _, k := range []int{-1, maxK + 1} {
		_, err = New(cs, k, [][]fr.Element{{}})
		assert.ErrorIs(err, frontend.ErrConfiguration)
	}

	// one public input vector per instance column
	_, err = New(cs, 2, nil)
	assert.ErrorIs(err, frontend.ErrConfiguration)
	_, err = New(cs, 2, [][]fr.Element{{}, {}})
	assert.ErrorIs(err, frontend.ErrConfiguration)

	// the vector must fit the grid
	_, err = New(cs, 0, [][]fr.Element{{f.Zero(), f.Zero()}})
	assert.ErrorIs(err, frontend.ErrConfiguration)

	p, err := New(cs, 0, [][]fr.Element{{f.FromUint64(7)}})
	assert.NoError(err)
	assert.Equal(1, p.NbRows())
}

func TestAssignmentRules(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	circuit := newRowSum(nil)
	cs, err := frontend.Configure(f, circuit)
	assert.NoError(err)

	p, err := New(cs, 1, [][]fr.Element{{f.FromUint64(3)}})
	assert.NoError(err)

	colA := frontend.Column{Kind: frontend.Advice, Index: 0}
	instance := frontend.Column{Kind: frontend.Instance, Index: 0}
	cell := frontend.Cell{Column: colA, Row: 0}

	assert.False(p.Advice(colA, 0).IsKnown())
	assert.NoError(p.AssignAdvice(colA, 0, frontend.Known(f.FromUint64(5))))
	v, ok := p.Advice(colA, 0).Get()
	assert.True(ok)
	assert.True(f.Equal(f.FromUint64(5), v))

	// cells are write-once, even with an equal value
	err = p.AssignAdvice(colA, 0, frontend.Known(f.FromUint64(5)))
	assert.ErrorIs(err, frontend.ErrSynthesis)
	assert.ErrorContains(err, "already assigned")

	// an explicitly unknown value still burns the cell
	assert.NoError(p.AssignAdvice(colA, 1, frontend.Value[fr.Element]{}))
	err = p.AssignAdvice(colA, 1, frontend.Known(f.One()))
	assert.ErrorIs(err, frontend.ErrSynthesis)

	// column kind, column index and row must name a grid cell
	err = p.AssignAdvice(frontend.Column{Kind: frontend.Fixed, Index: 0}, 0, frontend.Known(f.One()))
	assert.ErrorIs(err, frontend.ErrSynthesis)
	err = p.AssignAdvice(frontend.Column{Kind: frontend.Advice, Index: 9}, 0, frontend.Known(f.One()))
	assert.ErrorIs(err, frontend.ErrSynthesis)
	err = p.AssignAdvice(colA, 2, frontend.Known(f.One()))
	assert.ErrorIs(err, frontend.ErrSynthesis)
	err = p.AssignAdvice(colA, -1, frontend.Known(f.One()))
	assert.ErrorIs(err, frontend.ErrSynthesis)

	// selector activation is idempotent
	assert.False(p.Selector(circuit.sel, 0))
	assert.NoError(p.EnableSelector(circuit.sel, 0))
	assert.NoError(p.EnableSelector(circuit.sel, 0))
	assert.True(p.Selector(circuit.sel, 0))
	err = p.EnableSelector(circuit.sel, 5)
	assert.ErrorIs(err, frontend.ErrSynthesis)

	// copies must join two grid cells
	assert.NoError(p.Copy(cell, frontend.Cell{Column: instance, Row: 0}))
	err = p.Copy(cell, frontend.Cell{Column: frontend.Column{Kind: frontend.Instance, Index: 2}, Row: 0})
	assert.ErrorIs(err, frontend.ErrConfiguration)
	err = p.Copy(cell, frontend.Cell{Column: instance, Row: 2})
	assert.ErrorIs(err, frontend.ErrConfiguration)
	err = p.Copy(frontend.Cell{}, cell)
	assert.ErrorIs(err, frontend.ErrConfiguration)

	// instance rows past the public vector read as zero
	v, ok = p.Instance(instance, 0).Get()
	assert.True(ok)
	assert.True(f.Equal(f.FromUint64(3), v))
	v, ok = p.Instance(instance, 1).Get()
	assert.True(ok)
	assert.True(f.IsZero(v))

	iv, err := p.InstanceValue(instance, 1)
	assert.NoError(err)
	v, ok = iv.Get()
	assert.True(ok)
	assert.True(f.IsZero(v))
	_, err = p.InstanceValue(colA, 0)
	assert.ErrorIs(err, frontend.ErrConfiguration)
	_, err = p.InstanceValue(instance, 2)
	assert.ErrorIs(err, frontend.ErrConfiguration)
}

func TestPaddingRowsDoNotAffectVerdict(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	circuit := newRowSum([][3]uint64{{1, 2, 3}, {4, 5, 9}})
	p, err := Run(f, circuit, 2, [][]fr.Element{{f.FromUint64(9)}})
	assert.NoError(err)
	assert.Nil(p.Verify())

	// scribble over the padding rows; no selector is active there
	for _, col := range p.advice {
		col[2] = frontend.Known(f.FromUint64(123))
		col[3] = frontend.Known(f.FromUint64(456))
	}
	assert.Nil(p.Verify())

	// activating the gate on a scribbled row is caught
	p.selectors[0].Set(2)
	assert.Len(p.Verify(), 1)
}
