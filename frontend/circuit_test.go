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

// doubler checks out = in + in on its single row and exposes out.
type doubler struct {
	f  field.Field[fr.Element]
	in Value[fr.Element]

	colIn, colOut Column
	instance      Column
	sel           Selector
}

func (c *doubler) Configure(cs *ConstraintSystem[fr.Element]) error {
	c.colIn = cs.AdviceColumn()
	c.colOut = cs.AdviceColumn()
	c.instance = cs.InstanceColumn()
	if err := cs.EnableEquality(c.colOut); err != nil {
		return err
	}
	if err := cs.EnableEquality(c.instance); err != nil {
		return err
	}
	c.sel = cs.Selector()
	return cs.CreateGate("double", c.sel, func(v *VirtualCells[fr.Element]) []Expression[fr.Element] {
		in := v.QueryAdvice(c.colIn, 0)
		out := v.QueryAdvice(c.colOut, 0)
		return []Expression[fr.Element]{Sub(Add(in, in), out)}
	})
}

func (c *doubler) Synthesize(l Layouter[fr.Element]) error {
	var out Cell
	err := l.AssignRegion("double", func(r Region[fr.Element]) error {
		if err := r.EnableSelector(c.sel, 0); err != nil {
			return err
		}
		if _, err := r.AssignAdvice(c.colIn, 0, c.in); err != nil {
			return err
		}
		cell, err := r.AssignAdvice(c.colOut, 0, c.in.Map(func(e fr.Element) fr.Element {
			return c.f.Add(e, e)
		}))
		if err != nil {
			return err
		}
		out = cell
		return nil
	})
	if err != nil {
		return err
	}
	return l.ConstrainInstance(out, c.instance, 0)
}

func TestConfigure(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	c := &doubler{f: f, in: Known(f.FromUint64(3))}
	cs, err := Configure(f, c)
	assert.NoError(err)

	assert.Equal(2, cs.NbAdviceColumns())
	assert.Equal(0, cs.NbFixedColumns())
	assert.Equal(1, cs.NbInstanceColumns())
	assert.Equal(1, cs.NbSelectors())
	assert.Equal(1, cs.NbGates())
	assert.True(cs.EqualityEnabled(c.colOut))
	assert.False(cs.EqualityEnabled(c.colIn))

	// the sealed system rejects further mutation
	assert.Panics(func() { cs.AdviceColumn() })
	assert.Panics(func() { cs.Selector() })
	assert.ErrorIs(cs.EnableEquality(c.colIn), ErrConfiguration)
	assert.ErrorIs(cs.CreateGate("late", c.sel, func(v *VirtualCells[fr.Element]) []Expression[fr.Element] {
		return []Expression[fr.Element]{v.QueryAdvice(c.colIn, 0)}
	}), ErrConfiguration)
}

func TestConfigureDeterministic(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs1, err := Configure(f, &doubler{f: f})
	assert.NoError(err)
	cs2, err := Configure(f, &doubler{f: f})
	assert.NoError(err)
	assert.Equal(cs1, cs2, "configuring the same circuit twice must give identical systems")
}

type misconfigured struct {
	err       error
	panics    bool
	noColumns bool
}

func (c *misconfigured) Configure(cs *ConstraintSystem[fr.Element]) error {
	if c.panics {
		panic("boom")
	}
	if c.noColumns {
		return nil
	}
	cs.AdviceColumn()
	return c.err
}

func (c *misconfigured) Synthesize(Layouter[fr.Element]) error { return nil }

type valueReceiver struct{}

func (valueReceiver) Configure(cs *ConstraintSystem[fr.Element]) error {
	cs.AdviceColumn()
	return nil
}

func (valueReceiver) Synthesize(Layouter[fr.Element]) error { return nil }

func TestConfigureErrors(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	_, err := Configure[fr.Element](f, nil)
	assert.ErrorIs(err, ErrConfiguration)

	_, err = Configure(f, valueReceiver{})
	assert.ErrorIs(err, ErrConfiguration)
	assert.ErrorContains(err, "pointer receiver")

	_, err = Configure(f, &misconfigured{panics: true})
	assert.ErrorIs(err, ErrConfiguration)
	assert.ErrorContains(err, "boom")

	_, err = Configure(f, &misconfigured{noColumns: true})
	assert.ErrorIs(err, ErrConfiguration)

	plain := errors.New("bad luck")
	_, err = Configure(f, &misconfigured{err: plain})
	assert.ErrorIs(err, ErrConfiguration)
	assert.ErrorIs(err, plain)

	_, err = Configure(f, &misconfigured{}, WithCapacity(-1))
	assert.Error(err)
}

type failingSynth struct {
	err    error
	panics bool
}

func (c *failingSynth) Configure(cs *ConstraintSystem[fr.Element]) error {
	cs.AdviceColumn()
	return nil
}

func (c *failingSynth) Synthesize(Layouter[fr.Element]) error {
	if c.panics {
		panic("kaboom")
	}
	return c.err
}

func TestSynthesizeErrors(t *testing.T) {
	assert := require.New(t)
	f := bn254.New()

	cs, err := Configure(f, &failingSynth{})
	assert.NoError(err)
	l, err := NewLayouter[fr.Element](cs, 4, newOpLog(f))
	assert.NoError(err)

	assert.NoError(Synthesize(&failingSynth{}, l))

	err = Synthesize(&failingSynth{panics: true}, l)
	assert.ErrorIs(err, ErrSynthesis)
	assert.ErrorContains(err, "kaboom")

	plain := errors.New("ran out of rows")
	err = Synthesize(&failingSynth{err: plain}, l)
	assert.ErrorIs(err, ErrSynthesis)
	assert.ErrorIs(err, plain)

	// an error already carrying a classification keeps it
	already := fmt.Errorf("%w: busted", ErrConfiguration)
	err = Synthesize(&failingSynth{err: already}, l)
	assert.ErrorIs(err, ErrConfiguration)
	assert.NotErrorIs(err, ErrSynthesis)
}
