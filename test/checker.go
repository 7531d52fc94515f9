// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package test

import (
	"github.com/consensys/grille/field"
	"github.com/consensys/grille/frontend"
	"github.com/consensys/grille/mock"
)

// Satisfied runs the mock prover on circuit over f with 2^k rows and the
// given public inputs, and fails the test unless every constraint holds.
// The sequential and the parallel verifier must agree.
func Satisfied[E any](assert *Assert, f field.Field[E], circuit frontend.Circuit[E], k int, instance [][]E, opts ...frontend.ConfigureOption) *mock.Prover[E] {
	p, err := mock.Run(f, circuit, k, instance, opts...)
	assert.NoError(err, "running the mock prover")

	failures := p.Verify()
	for _, fl := range failures {
		assert.Log(fl.String())
	}
	assert.Empty(failures, "constraint system not satisfied")
	assert.Empty(p.VerifyParallel(), "parallel verifier disagrees with the sequential one")
	return p
}

// NotSatisfied runs the mock prover on circuit over f with 2^k rows and the
// given public inputs, and fails the test unless at least one constraint is
// violated. The sequential and the parallel verdict must agree.
func NotSatisfied[E any](assert *Assert, f field.Field[E], circuit frontend.Circuit[E], k int, instance [][]E, opts ...frontend.ConfigureOption) []mock.Failure {
	p, err := mock.Run(f, circuit, k, instance, opts...)
	assert.NoError(err, "running the mock prover")

	failures := p.Verify()
	assert.NotEmpty(failures, "constraint system unexpectedly satisfied")
	assert.Equal(FailureStrings(failures), FailureStrings(p.VerifyParallel()),
		"parallel verifier disagrees with the sequential one")
	return failures
}

// FailureStrings renders failures for comparison in tests.
func FailureStrings(failures []mock.Failure) []string {
	s := make([]string, 0, len(failures))
	for _, f := range failures {
		s = append(s, f.String())
	}
	return s
}
