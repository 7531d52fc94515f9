// Package grille is a PLONKish arithmetization library: circuits are
// described as a fixed grid of typed columns (advice, fixed, instance)
// constrained by selector-gated polynomial identities and cell-equality
// constraints, filled row by row with a witness, and checked for
// satisfiability by a mock prover.
//
// grille covers circuit construction and witness checking only; it produces
// no cryptographic proofs. A proving backend consumes the same
// (constraint system, grid, public inputs) triple through the
// frontend.Assignment interface.
//
// The engine is generic over the field element type. Supported
// instantiations live under field/:
//   - BN254 scalar field
//   - BLS12-377 scalar field
//   - BabyBear
//   - KoalaBear
package grille

import (
	"github.com/blang/semver/v4"
)

var Version = semver.MustParse("0.1.0")

// Fields returns the names of the field instantiations shipped with grille.
func Fields() []string {
	return []string{
		"bn254",
		"bls12-377",
		"babybear",
		"koalabear",
	}
}
