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

func TestVerifyGateFailures(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	// two bad rows with a good one between them; the instance copy holds
	circuit := newRowSum([][3]uint64{{1, 2, 4}, {2, 2, 4}, {3, 3, 9}})
	p, err := Run(f, circuit, 2, [][]fr.Element{{f.FromUint64(9)}})
	assert.NoError(err)

	failures := p.Verify()
	assert.Len(failures, 2)

	first, ok := failures[0].(GateFailure)
	assert.True(ok)
	assert.Equal(GateFailure{
		Gate:   "sum",
		Poly:   0,
		Row:    0,
		Region: "rows",
		Value:  f.String(f.Neg(f.One())),
	}, first)

	second, ok := failures[1].(GateFailure)
	assert.True(ok)
	assert.Equal(2, second.Row)
	assert.Equal(f.String(f.Neg(f.FromUint64(3))), second.Value)

	assert.Contains(first.String(), `gate "sum"`)
	assert.Contains(first.String(), "row 0")
	assert.Contains(first.String(), `(in region "rows")`)
}

func TestVerifyEqualityFailure(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	// the gate holds but the exposed cell disagrees with the public input
	circuit := newRowSum([][3]uint64{{1, 2, 3}})
	p, err := Run(f, circuit, 1, [][]fr.Element{{f.FromUint64(5)}})
	assert.NoError(err)

	failures := p.Verify()
	assert.Len(failures, 1)

	eq, ok := failures[0].(EqualityFailure)
	assert.True(ok)
	assert.Equal(frontend.Cell{Column: frontend.Column{Kind: frontend.Advice, Index: 2}, Row: 0}, eq.A)
	assert.Equal(frontend.Cell{Column: frontend.Column{Kind: frontend.Instance, Index: 0}, Row: 0}, eq.B)
	assert.Equal("3", eq.ValA)
	assert.Equal("5", eq.ValB)
	assert.Contains(eq.String(), "copy constraint (advice[2], row 0) = (instance[0], row 0): 3 != 5")
}

// pinned writes two advice cells and constrains them equal; no gate.
type pinned struct {
	f     field.Field[fr.Element]
	a, b  uint64
	skipB bool

	colA, colB frontend.Column
}

func (c *pinned) Configure(cs *frontend.ConstraintSystem[fr.Element]) error {
	c.colA = cs.AdviceColumn()
	c.colB = cs.AdviceColumn()
	for _, col := range []frontend.Column{c.colA, c.colB} {
		if err := cs.EnableEquality(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *pinned) Synthesize(l frontend.Layouter[fr.Element]) error {
	return l.AssignRegion("pin", func(r frontend.Region[fr.Element]) error {
		cellA, err := r.AssignAdvice(c.colA, 0, frontend.Known(c.f.FromUint64(c.a)))
		if err != nil {
			return err
		}
		cellB := frontend.Cell{Column: c.colB, Row: 0}
		if !c.skipB {
			if cellB, err = r.AssignAdvice(c.colB, 0, frontend.Known(c.f.FromUint64(c.b))); err != nil {
				return err
			}
		}
		return r.ConstrainEqual(cellA, cellB)
	})
}

func TestVerifyCopyValues(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	p, err := Run(f, &pinned{f: f, a: 7, b: 7}, 0, nil)
	assert.NoError(err)
	assert.Nil(p.Verify())

	p, err = Run(f, &pinned{f: f, a: 7, b: 8}, 0, nil)
	assert.NoError(err)
	failures := p.Verify()
	assert.Len(failures, 1)
	eq, ok := failures[0].(EqualityFailure)
	assert.True(ok)
	assert.Equal(frontend.Cell{Column: frontend.Column{Kind: frontend.Advice, Index: 0}, Row: 0}, eq.A)
	assert.Equal(frontend.Cell{Column: frontend.Column{Kind: frontend.Advice, Index: 1}, Row: 0}, eq.B)
	assert.Equal("7", eq.ValA)
	assert.Equal("8", eq.ValB)

	// an unassigned side renders as unknown
	p, err = Run(f, &pinned{f: f, a: 7, skipB: true}, 0, nil)
	assert.NoError(err)
	failures = p.Verify()
	assert.Len(failures, 1)
	eq, ok = failures[0].(EqualityFailure)
	assert.True(ok)
	assert.Equal("7", eq.ValA)
	assert.Equal("unknown", eq.ValB)
}

func TestRowLocality(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	circuit := newRowSum([][3]uint64{{1, 2, 3}, {4, 5, 9}, {2, 2, 4}})
	p, err := Run(f, circuit, 2, [][]fr.Element{{f.FromUint64(4)}})
	assert.NoError(err)
	assert.Nil(p.Verify())

	// corrupting one cell breaks exactly the row that reads it
	p.advice[0][1] = frontend.Known(f.FromUint64(100))
	failures := p.Verify()
	assert.Len(failures, 1)
	gf, ok := failures[0].(GateFailure)
	assert.True(ok)
	assert.Equal(1, gf.Row)
}

func TestVerifyUnassigned(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	circuit := newRowSum([][3]uint64{{1, 2, 3}, {4, 5, 9}})
	circuit.skipOut = 1
	p, err := Run(f, circuit, 1, [][]fr.Element{{f.FromUint64(3)}})
	assert.NoError(err)

	failures := p.Verify()
	assert.Len(failures, 1)

	un, ok := failures[0].(UnassignedFailure)
	assert.True(ok)
	assert.Equal(UnassignedFailure{
		Gate:   "sum",
		Row:    1,
		Cell:   frontend.Cell{Column: frontend.Column{Kind: frontend.Advice, Index: 2}, Row: 1},
		Region: "rows",
	}, un)
	assert.Contains(un.String(), "unassigned cell (advice[2], row 1)")
}

func TestVerifyParallelMatchesSequential(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	// plant a gate violation every third row, one unassigned cell and a
	// broken instance copy, spread over enough rows to split into chunks
	rows := make([][3]uint64, 24)
	for i := range rows {
		a, b := uint64(i), uint64(2*i+1)
		out := a + b
		if i%3 == 0 {
			out++
		}
		rows[i] = [3]uint64{a, b, out}
	}
	circuit := newRowSum(rows)
	circuit.skipOut = 7
	p, err := Run(f, circuit, 5, [][]fr.Element{{f.Zero()}})
	assert.NoError(err)

	sequential := p.Verify()
	assert.NotEmpty(sequential)
	assert.Equal(sequential, p.VerifyParallel())
	assert.Equal(sequential, p.VerifyParallel())
}
