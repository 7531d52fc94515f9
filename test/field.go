// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"github.com/consensys/grille/field"
)

// FieldSuite property-checks an implementation of field.Field: ring axioms
// on random elements, the constants, and the serialization round-trips.
func FieldSuite[E any](t *testing.T, f field.Field[E]) {
	assert := NewAssert(t)

	assert.True(f.IsZero(f.Zero()))
	assert.True(f.IsOne(f.One()))
	assert.False(f.IsZero(f.One()))
	assert.Equal(f.NbBytes(), len(f.Bytes(f.Zero())))
	assert.Equal("12", f.String(f.FromUint64(12)))
	assert.Positive(f.Modulus().Sign())

	fromNeg, err := f.FromInterface(-1)
	assert.NoError(err)
	assert.True(f.Equal(fromNeg, f.Neg(f.One())), "FromInterface(-1) must reduce modulo the field order")

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	gen := ElementGen(f)

	properties.Property("addition is commutative", prop.ForAll(
		func(a, b E) bool {
			return f.Equal(f.Add(a, b), f.Add(b, a))
		},
		gen, gen,
	))

	properties.Property("multiplication distributes over addition", prop.ForAll(
		func(a, b, c E) bool {
			return f.Equal(f.Mul(a, f.Add(b, c)), f.Add(f.Mul(a, b), f.Mul(a, c)))
		},
		gen, gen, gen,
	))

	properties.Property("a - a == 0", prop.ForAll(
		func(a E) bool { return f.IsZero(f.Sub(a, a)) },
		gen,
	))

	properties.Property("a + (-a) == 0", prop.ForAll(
		func(a E) bool { return f.IsZero(f.Add(a, f.Neg(a))) },
		gen,
	))

	properties.Property("1 * a == a", prop.ForAll(
		func(a E) bool { return f.Equal(f.Mul(f.One(), a), a) },
		gen,
	))

	properties.Property("0 * a == 0", prop.ForAll(
		func(a E) bool { return f.IsZero(f.Mul(f.Zero(), a)) },
		gen,
	))

	properties.Property("bytes round-trip", prop.ForAll(
		func(a E) bool {
			b, err := f.FromBytes(f.Bytes(a))
			return err == nil && f.Equal(a, b)
		},
		gen,
	))

	properties.Property("big.Int round-trip", prop.ForAll(
		func(a E) bool {
			b, err := f.FromInterface(f.ToBigInt(a))
			return err == nil && f.Equal(a, b)
		},
		gen,
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
