// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package bn254

import (
	"testing"

	"github.com/consensys/grille/test"
)

func TestField(t *testing.T) {
	test.FieldSuite(t, New())
}
