// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import "errors"

var (
	// ErrConfiguration is wrapped by every error reporting structural misuse
	// of the constraint system before a witness exists: duplicate or invalid
	// column declarations, gates over undeclared columns, equality
	// constraints on columns without equality enabled, or a public-input
	// vector that does not match the declared instance columns. A
	// configuration error makes the constraint system unusable.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSynthesis is wrapped by every error raised while assigning a
	// witness: writing outside the grid, re-assigning a cell, or a panic
	// inside Circuit.Synthesize. It invalidates the current witness only;
	// the shared constraint system remains valid and a new synthesis may
	// proceed.
	ErrSynthesis = errors.New("synthesis failed")
)
