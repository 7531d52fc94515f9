// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

// Package frontend contains the object model used to declare and fill
// PLONKish circuits: typed columns, selectors, polynomial gates, equality
// constraints, and the region-based assignment API.
//
// A circuit implements the Circuit interface. Configure runs once per
// constraint system, before any witness exists, and declares the circuit
// shape; Synthesize runs once per witness and fills the grid through a
// Layouter. The filled grid is consumed by a backend implementing
// Assignment; the mock package provides the reference backend, which checks
// witness satisfiability.
package frontend
