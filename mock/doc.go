// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

// Package mock checks that a synthesized witness grid satisfies its
// constraint system, without any cryptographic machinery.
//
// The Prover fills a 2^k-row grid by acting as the assignment backend of a
// frontend.Layouter, then walks every gate at every active row and every
// copy constraint, collecting all failures instead of stopping at the first.
// It is the development-time substitute for a real proving backend: a
// circuit that satisfies the mock prover is arithmetized correctly, whatever
// backend eventually consumes it.
package mock
