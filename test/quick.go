// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package test

import (
	"github.com/leanovate/gopter"

	"github.com/consensys/grille/field"
)

// ElementGen returns a gopter generator of uniform elements of f.
func ElementGen[E any](f field.Field[E]) gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		return gopter.NewGenResult(mustRand(f), gopter.NoShrinker)
	}
}

// VectorGen returns a gopter generator of element vectors with length in
// [1, maxLen].
func VectorGen[E any](f field.Field[E], maxLen int) gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		xs := make([]E, 1+genParams.Rng.Intn(maxLen))
		for i := range xs {
			xs[i] = mustRand(f)
		}
		return gopter.NewGenResult(xs, gopter.NoShrinker)
	}
}

func mustRand[E any](f field.Field[E]) E {
	e, err := f.Rand()
	if err != nil {
		panic(err)
	}
	return e
}
