// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

// Package field defines the capability set the grille engine requires from a
// finite field. The engine is generic over the element type E and performs
// all arithmetic through a Field[E], so the same circuit code runs unchanged
// over large pairing-friendly scalar fields and small 31-bit fields.
//
// Implementations for gnark-crypto element types are generated under
// field/bn254, field/bls12377, field/babybear and field/koalabear.
package field

import "math/big"

// Field implements finite-field arithmetic over the element type E.
//
// Implementations must be stateless: methods take and return elements by
// value and must be safe for concurrent use.
type Field[E any] interface {
	// Zero returns the additive identity.
	Zero() E
	// One returns the multiplicative identity.
	One() E

	// FromUint64 returns v reduced into the field.
	FromUint64(v uint64) E
	// FromInterface converts i (integer kinds, string, []byte, big.Int or a
	// gnark-crypto element) to a field element.
	FromInterface(i interface{}) (E, error)

	Add(a, b E) E
	Sub(a, b E) E
	Mul(a, b E) E
	Neg(a E) E

	Equal(a, b E) bool
	IsZero(a E) bool
	IsOne(a E) bool

	// Rand returns a uniformly sampled element, using crypto/rand as source.
	Rand() (E, error)

	String(a E) string
	// ToBigInt returns a in regular (non-Montgomery) form.
	ToBigInt(a E) *big.Int

	// Bytes returns the big-endian, fixed-width encoding of a. The width is
	// NbBytes.
	Bytes(a E) []byte
	// FromBytes decodes a big-endian encoding of width NbBytes. It errors if
	// the encoding is not a canonical element.
	FromBytes(b []byte) (E, error)
	// NbBytes returns the encoding width of an element in bytes.
	NbBytes() int

	// Modulus returns the field modulus.
	Modulus() *big.Int
}
