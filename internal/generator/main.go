package main

import (
	"os"
	"path/filepath"

	"github.com/consensys/bavard"
)

const copyrightHolder = "Consensys Software Inc."

var bgen = bavard.NewBatchGenerator(copyrightHolder, 2020, "grille")

//go:generate go run main.go
func main() {

	fields := []templateData{
		{Package: "bn254", FrPackage: "github.com/consensys/gnark-crypto/ecc/bn254/fr"},
		{Package: "bls12377", FrPackage: "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"},
		{Package: "babybear", FrPackage: "github.com/consensys/gnark-crypto/field/babybear"},
		{Package: "koalabear", FrPackage: "github.com/consensys/gnark-crypto/field/koalabear"},
	}

	for _, d := range fields {
		dir := filepath.Join("..", "..", "field", d.Package)
		if err := os.MkdirAll(dir, 0700); err != nil {
			panic(err)
		}
		entries := []bavard.Entry{
			{File: filepath.Join(dir, "field.go"), Templates: []string{"field.go.tmpl"}},
		}
		if err := bgen.Generate(d, d.Package, "./template/", entries...); err != nil {
			panic(err)
		}
	}
}

type templateData struct {
	Package   string
	FrPackage string
}
