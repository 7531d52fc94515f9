// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/consensys/grille/debug"
	"github.com/consensys/grille/field"
	"github.com/consensys/grille/logger"
)

// Circuit must be implemented by a user circuit, on a pointer receiver:
// Configure stores the declared column and selector handles on the circuit
// value, and Synthesize reads them back.
type Circuit[E any] interface {
	// Configure declares the circuit's columns, selectors and gates. It runs
	// once per constraint system, before any witness exists, and must be
	// deterministic.
	Configure(cs *ConstraintSystem[E]) error

	// Synthesize fills the witness grid through l. It runs once per witness;
	// a circuit built without inputs assigns Unknown values, which is how a
	// shape-only synthesis is expressed.
	Synthesize(l Layouter[E]) error
}

type configureConfig struct {
	capacity int
}

// ConfigureOption alters the behavior of Configure.
type ConfigureOption func(*configureConfig) error

// WithCapacity pre-allocates the constraint system for nbGates gates.
func WithCapacity(nbGates int) ConfigureOption {
	return func(c *configureConfig) error {
		if nbGates <= 0 {
			return fmt.Errorf("capacity must be positive, got %d", nbGates)
		}
		c.capacity = nbGates
		return nil
	}
}

// Configure builds the constraint system of circuit over f: it runs
// circuit.Configure on a fresh system, validates the result and seals it.
// The sealed system is reusable read-only across witnesses.
func Configure[E any](f field.Field[E], circuit Circuit[E], opts ...ConfigureOption) (*ConstraintSystem[E], error) {
	log := logger.Logger()

	var cfg configureConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			log.Err(err).Msg("applying configure option")
			return nil, fmt.Errorf("apply configure option: %w", err)
		}
	}

	if circuit == nil {
		return nil, fmt.Errorf("%w: nil circuit", ErrConfiguration)
	}
	// Configure stores handles on the circuit, Synthesize reads them back;
	// a value receiver would silently lose them.
	if reflect.ValueOf(circuit).Kind() != reflect.Ptr {
		return nil, fmt.Errorf("%w: frontend.Circuit methods must be defined on pointer receiver", ErrConfiguration)
	}

	cs := newSystem(f, cfg.capacity)
	if err := runConfigure(circuit, cs); err != nil {
		return nil, err
	}

	if cs.nbAdvice+cs.nbFixed+cs.nbInstance == 0 {
		return nil, fmt.Errorf("%w: circuit declares no column", ErrConfiguration)
	}

	cs.seal()

	maxDegree := 0
	for _, g := range cs.gates {
		maxDegree = max(maxDegree, g.Degree())
	}
	log.Debug().
		Int("nbAdvice", cs.nbAdvice).
		Int("nbFixed", cs.nbFixed).
		Int("nbInstance", cs.nbInstance).
		Int("nbSelectors", cs.nbSelectors).
		Int("nbGates", len(cs.gates)).
		Int("maxDegree", maxDegree).
		Int("fieldBits", f.Modulus().BitLen()).
		Msg("configured constraint system")

	return cs, nil
}

func runConfigure[E any](circuit Circuit[E], cs *ConstraintSystem[E]) (err error) {
	// recover from panics to print user-friendlier messages
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrConfiguration, r, debug.Stack())
		}
	}()

	if err = circuit.Configure(cs); err != nil {
		if errors.Is(err, ErrConfiguration) {
			return fmt.Errorf("configure circuit: %w", err)
		}
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// Synthesize runs circuit.Synthesize against l, recovering panics. Errors
// not already classified are wrapped as synthesis failures: they invalidate
// the current witness, not the constraint system.
func Synthesize[E any](circuit Circuit[E], l Layouter[E]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrSynthesis, r, debug.Stack())
		}
	}()

	if err = circuit.Synthesize(l); err != nil {
		if errors.Is(err, ErrSynthesis) || errors.Is(err, ErrConfiguration) {
			return fmt.Errorf("synthesize circuit: %w", err)
		}
		return fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return nil
}
