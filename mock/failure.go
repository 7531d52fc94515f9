// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package mock

import (
	"fmt"

	"github.com/consensys/grille/frontend"
)

// Failure describes one way a filled grid falls short of its constraint
// system. Failures are reported values, not errors: Verify collects every
// failure so a caller can see all of them at once.
type Failure interface {
	fmt.Stringer

	failure()
}

// GateFailure reports a gate polynomial that does not evaluate to zero at a
// row where the gate's selector is active.
type GateFailure struct {
	Gate string
	// Poly is the index of the offending polynomial within the gate, in the
	// order the gate builder returned them.
	Poly int
	Row  int
	// Region names the region whose assignments cover Row, when there is one.
	Region string
	// Value is the nonzero evaluation, rendered by the field.
	Value string
}

func (f GateFailure) failure() {}

func (f GateFailure) String() string {
	s := fmt.Sprintf("gate %q: polynomial %d does not vanish at row %d, evaluates to %s", f.Gate, f.Poly, f.Row, f.Value)
	if f.Region != "" {
		s += fmt.Sprintf(" (in region %q)", f.Region)
	}
	return s
}

// UnassignedFailure reports a gate evaluation that read a cell never
// assigned during synthesis.
type UnassignedFailure struct {
	Gate string
	// Row is the row the gate was evaluated at; Cell is the unassigned cell
	// it queried, in absolute grid coordinates.
	Row    int
	Cell   frontend.Cell
	Region string
}

func (f UnassignedFailure) failure() {}

func (f UnassignedFailure) String() string {
	s := fmt.Sprintf("gate %q: query of unassigned cell %s at row %d", f.Gate, f.Cell, f.Row)
	if f.Region != "" {
		s += fmt.Sprintf(" (in region %q)", f.Region)
	}
	return s
}

// EqualityFailure reports a copy constraint whose two cells do not hold the
// same value. An unassigned cell is rendered as "unknown".
type EqualityFailure struct {
	A, B frontend.Cell
	// ValA and ValB are the two cell values, rendered by the field.
	ValA, ValB string
	// Stack points at the code that declared the constraint, when the grid
	// still carries that information.
	Stack string
}

func (f EqualityFailure) failure() {}

func (f EqualityFailure) String() string {
	s := fmt.Sprintf("copy constraint %s = %s: %s != %s", f.A, f.B, f.ValA, f.ValB)
	if f.Stack != "" {
		s += "\ndeclared at:\n" + f.Stack
	}
	return s
}
