// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

// Value is a field element that may be unknown. Circuits synthesized without
// a witness carry Unknown values end to end; this derives the circuit shape
// without requiring concrete inputs.
type Value[E any] struct {
	v     E
	known bool
}

// Known wraps a concrete element.
func Known[E any](v E) Value[E] {
	return Value[E]{v: v, known: true}
}

// Unknown returns the absent value.
func Unknown[E any]() Value[E] {
	return Value[E]{}
}

// IsKnown reports whether the value is concrete.
func (v Value[E]) IsKnown() bool {
	return v.known
}

// Get returns the underlying element and whether it is known. The element is
// the zero value when unknown.
func (v Value[E]) Get() (E, bool) {
	return v.v, v.known
}

// Map applies fn to a known value; Unknown is returned unchanged.
func (v Value[E]) Map(fn func(E) E) Value[E] {
	if !v.known {
		return v
	}
	return Known(fn(v.v))
}

// Map2 applies fn to two known values; if either operand is Unknown the
// result is Unknown.
func Map2[E any](a, b Value[E], fn func(E, E) E) Value[E] {
	if !a.known || !b.known {
		return Unknown[E]()
	}
	return Known(fn(a.v, b.v))
}
