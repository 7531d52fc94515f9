// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import (
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/consensys/grille/field"
)

// Table is the read surface an Expression evaluates against: a filled grid
// plus its selector assignments. The mock prover implements it; a proving
// backend evaluating gates over its own column storage implements it the
// same way.
type Table[E any] interface {
	Field() field.Field[E]
	NbRows() int
	Advice(col Column, row int) Value[E]
	Fixed(col Column, row int) Value[E]
	Instance(col Column, row int) Value[E]
	Selector(s Selector, row int) bool
}

// Expression is a polynomial over cell queries, built with Constant, Add,
// Sub, Mul, Neg and the query methods of VirtualCells. A gate's expressions
// must evaluate to zero at every row where the gate's selector is active.
type Expression[E any] interface {
	// EvalAt evaluates the expression at the given row of tbl. Queries whose
	// rotated row falls outside [0, tbl.NbRows()) evaluate to zero; a query
	// of an unassigned cell makes the result Unknown.
	EvalAt(row int, tbl Table[E]) Value[E]

	// Degree returns the polynomial degree, counting every cell and selector
	// query as degree one.
	Degree() int

	sprint(f field.Field[E]) string
	writeHash(h hash.Hash, f field.Field[E])
	collectQueries(c *queryCollector)
}

// CellQuery describes one column access performed by an expression.
type CellQuery struct {
	Col Column
	Rot Rotation
}

type queryCollector struct {
	cells []CellQuery
	sels  []Selector
}

func (c *queryCollector) addCell(q CellQuery) {
	for _, seen := range c.cells {
		if seen == q {
			return
		}
	}
	c.cells = append(c.cells, q)
}

func (c *queryCollector) addSelector(s Selector) {
	for _, seen := range c.sels {
		if seen == s {
			return
		}
	}
	c.sels = append(c.sels, s)
}

// Queries returns the deduplicated cell queries and selector queries of e,
// in first-visit order.
func Queries[E any](e Expression[E]) ([]CellQuery, []Selector) {
	var c queryCollector
	e.collectQueries(&c)
	return c.cells, c.sels
}

// Sprint renders e, printing constants through f.
func Sprint[E any](e Expression[E], f field.Field[E]) string {
	return e.sprint(f)
}

// HashCode returns a 16-byte blake2b digest of the expression structure.
// Structurally identical expressions hash identically.
func HashCode[E any](e Expression[E], f field.Field[E]) [16]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	e.writeHash(h, f)
	var r [16]byte
	copy(r[:], h.Sum(nil))
	return r
}

const (
	hashConstant byte = iota + 1
	hashAdvice
	hashFixed
	hashInstance
	hashSelector
	hashAdd
	hashSub
	hashMul
	hashNeg
)

func hashInt(h hash.Hash, v int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(int64(v)))
	h.Write(b[:])
}

// rotatedRow resolves a rotation against the grid bounds. ok is false when
// the rotated row falls outside the grid.
func rotatedRow(row int, rot Rotation, n int) (int, bool) {
	r := row + int(rot)
	if r < 0 || r >= n {
		return 0, false
	}
	return r, true
}

// Constant returns the expression with constant value v.
func Constant[E any](v E) Expression[E] {
	return constExpr[E]{v: v}
}

// Add returns a + b.
func Add[E any](a, b Expression[E]) Expression[E] {
	return addExpr[E]{a: a, b: b}
}

// Sub returns a - b.
func Sub[E any](a, b Expression[E]) Expression[E] {
	return subExpr[E]{a: a, b: b}
}

// Mul returns a * b.
func Mul[E any](a, b Expression[E]) Expression[E] {
	return mulExpr[E]{a: a, b: b}
}

// Neg returns -a.
func Neg[E any](a Expression[E]) Expression[E] {
	return negExpr[E]{a: a}
}

type constExpr[E any] struct {
	v E
}

func (e constExpr[E]) EvalAt(_ int, _ Table[E]) Value[E] { return Known(e.v) }
func (e constExpr[E]) Degree() int                       { return 0 }
func (e constExpr[E]) sprint(f field.Field[E]) string    { return f.String(e.v) }
func (e constExpr[E]) collectQueries(_ *queryCollector)  {}

func (e constExpr[E]) writeHash(h hash.Hash, f field.Field[E]) {
	h.Write([]byte{hashConstant})
	h.Write(f.Bytes(e.v))
}

type adviceQuery[E any] struct {
	col Column
	rot Rotation
}

func (e adviceQuery[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	r, ok := rotatedRow(row, e.rot, tbl.NbRows())
	if !ok {
		return Known(tbl.Field().Zero())
	}
	return tbl.Advice(e.col, r)
}

func (e adviceQuery[E]) Degree() int                    { return 1 }
func (e adviceQuery[E]) sprint(_ field.Field[E]) string { return sprintQuery(e.col, e.rot) }

func (e adviceQuery[E]) collectQueries(c *queryCollector) {
	c.addCell(CellQuery{Col: e.col, Rot: e.rot})
}

func (e adviceQuery[E]) writeHash(h hash.Hash, _ field.Field[E]) {
	h.Write([]byte{hashAdvice})
	hashInt(h, e.col.Index)
	hashInt(h, int(e.rot))
}

type fixedQuery[E any] struct {
	col Column
	rot Rotation
}

func (e fixedQuery[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	r, ok := rotatedRow(row, e.rot, tbl.NbRows())
	if !ok {
		return Known(tbl.Field().Zero())
	}
	return tbl.Fixed(e.col, r)
}

func (e fixedQuery[E]) Degree() int                    { return 1 }
func (e fixedQuery[E]) sprint(_ field.Field[E]) string { return sprintQuery(e.col, e.rot) }

func (e fixedQuery[E]) collectQueries(c *queryCollector) {
	c.addCell(CellQuery{Col: e.col, Rot: e.rot})
}

func (e fixedQuery[E]) writeHash(h hash.Hash, _ field.Field[E]) {
	h.Write([]byte{hashFixed})
	hashInt(h, e.col.Index)
	hashInt(h, int(e.rot))
}

type instanceQuery[E any] struct {
	col Column
	rot Rotation
}

func (e instanceQuery[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	r, ok := rotatedRow(row, e.rot, tbl.NbRows())
	if !ok {
		return Known(tbl.Field().Zero())
	}
	return tbl.Instance(e.col, r)
}

func (e instanceQuery[E]) Degree() int                    { return 1 }
func (e instanceQuery[E]) sprint(_ field.Field[E]) string { return sprintQuery(e.col, e.rot) }

func (e instanceQuery[E]) collectQueries(c *queryCollector) {
	c.addCell(CellQuery{Col: e.col, Rot: e.rot})
}

func (e instanceQuery[E]) writeHash(h hash.Hash, _ field.Field[E]) {
	h.Write([]byte{hashInstance})
	hashInt(h, e.col.Index)
	hashInt(h, int(e.rot))
}

type selectorQuery[E any] struct {
	sel Selector
}

func (e selectorQuery[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	if tbl.Selector(e.sel, row) {
		return Known(tbl.Field().One())
	}
	return Known(tbl.Field().Zero())
}

func (e selectorQuery[E]) Degree() int                    { return 1 }
func (e selectorQuery[E]) sprint(_ field.Field[E]) string { return e.sel.String() }

func (e selectorQuery[E]) collectQueries(c *queryCollector) {
	c.addSelector(e.sel)
}

func (e selectorQuery[E]) writeHash(h hash.Hash, _ field.Field[E]) {
	h.Write([]byte{hashSelector})
	hashInt(h, e.sel.index)
}

type addExpr[E any] struct {
	a, b Expression[E]
}

func (e addExpr[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	return Map2(e.a.EvalAt(row, tbl), e.b.EvalAt(row, tbl), tbl.Field().Add)
}

func (e addExpr[E]) Degree() int {
	return max(e.a.Degree(), e.b.Degree())
}

func (e addExpr[E]) sprint(f field.Field[E]) string {
	return fmt.Sprintf("(%s + %s)", e.a.sprint(f), e.b.sprint(f))
}

func (e addExpr[E]) collectQueries(c *queryCollector) {
	e.a.collectQueries(c)
	e.b.collectQueries(c)
}

func (e addExpr[E]) writeHash(h hash.Hash, f field.Field[E]) {
	h.Write([]byte{hashAdd})
	e.a.writeHash(h, f)
	e.b.writeHash(h, f)
}

type subExpr[E any] struct {
	a, b Expression[E]
}

func (e subExpr[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	return Map2(e.a.EvalAt(row, tbl), e.b.EvalAt(row, tbl), tbl.Field().Sub)
}

func (e subExpr[E]) Degree() int {
	return max(e.a.Degree(), e.b.Degree())
}

func (e subExpr[E]) sprint(f field.Field[E]) string {
	return fmt.Sprintf("(%s - %s)", e.a.sprint(f), e.b.sprint(f))
}

func (e subExpr[E]) collectQueries(c *queryCollector) {
	e.a.collectQueries(c)
	e.b.collectQueries(c)
}

func (e subExpr[E]) writeHash(h hash.Hash, f field.Field[E]) {
	h.Write([]byte{hashSub})
	e.a.writeHash(h, f)
	e.b.writeHash(h, f)
}

type mulExpr[E any] struct {
	a, b Expression[E]
}

// EvalAt short-circuits a known zero factor: zero times an unknown value is
// zero, so a gated term whose other factor vanishes cannot report a spurious
// unassigned cell.
func (e mulExpr[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	f := tbl.Field()
	va := e.a.EvalAt(row, tbl)
	if a, ok := va.Get(); ok && f.IsZero(a) {
		return Known(f.Zero())
	}
	vb := e.b.EvalAt(row, tbl)
	if b, ok := vb.Get(); ok && f.IsZero(b) {
		return Known(f.Zero())
	}
	return Map2(va, vb, f.Mul)
}

func (e mulExpr[E]) Degree() int {
	return e.a.Degree() + e.b.Degree()
}

func (e mulExpr[E]) sprint(f field.Field[E]) string {
	return fmt.Sprintf("(%s * %s)", e.a.sprint(f), e.b.sprint(f))
}

func (e mulExpr[E]) collectQueries(c *queryCollector) {
	e.a.collectQueries(c)
	e.b.collectQueries(c)
}

func (e mulExpr[E]) writeHash(h hash.Hash, f field.Field[E]) {
	h.Write([]byte{hashMul})
	e.a.writeHash(h, f)
	e.b.writeHash(h, f)
}

type negExpr[E any] struct {
	a Expression[E]
}

func (e negExpr[E]) EvalAt(row int, tbl Table[E]) Value[E] {
	return e.a.EvalAt(row, tbl).Map(tbl.Field().Neg)
}

func (e negExpr[E]) Degree() int {
	return e.a.Degree()
}

func (e negExpr[E]) sprint(f field.Field[E]) string {
	return fmt.Sprintf("(-%s)", e.a.sprint(f))
}

func (e negExpr[E]) collectQueries(c *queryCollector) {
	e.a.collectQueries(c)
}

func (e negExpr[E]) writeHash(h hash.Hash, f field.Field[E]) {
	h.Write([]byte{hashNeg})
	e.a.writeHash(h, f)
}

func sprintQuery(col Column, rot Rotation) string {
	if rot == 0 {
		return col.String()
	}
	return fmt.Sprintf("%s@%+d", col, int(rot))
}
