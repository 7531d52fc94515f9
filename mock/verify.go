// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package mock

import (
	"runtime"

	"github.com/consensys/grille/frontend"
	"golang.org/x/sync/errgroup"
)

// Verify walks every gate at every row where its selector is active, then
// every copy constraint, and returns all failures in grid order. A nil
// result means the witness satisfies the constraint system.
func (p *Prover[E]) Verify() []Failure {
	var failures []Failure
	for _, g := range p.cs.Gates() {
		failures = p.verifyGateRows(g, 0, p.n, failures)
	}
	return p.verifyCopies(failures)
}

// VerifyParallel is Verify with gate evaluation spread across CPUs. Rows are
// split in deterministic chunks, each gate check being independent of every
// other row, so the failures come back in the same order Verify reports
// them.
func (p *Prover[E]) VerifyParallel() []Failure {
	gates := p.cs.Gates()
	nbChunks := min(runtime.NumCPU(), p.n)
	chunk := (p.n + nbChunks - 1) / nbChunks

	results := make([][]Failure, len(gates)*nbChunks+1)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for gi, gate := range gates {
		for c := 0; c < nbChunks; c++ {
			g.Go(func() error {
				from := c * chunk
				to := min(from+chunk, p.n)
				results[gi*nbChunks+c] = p.verifyGateRows(gate, from, to, nil)
				return nil
			})
		}
	}
	g.Go(func() error {
		results[len(results)-1] = p.verifyCopies(nil)
		return nil
	})
	_ = g.Wait()

	var failures []Failure
	for _, r := range results {
		failures = append(failures, r...)
	}
	return failures
}

func (p *Prover[E]) verifyGateRows(g frontend.Gate[E], from, to int, failures []Failure) []Failure {
	sel := p.selectors[g.Selector.Index()]
	for row := from; row < to; row++ {
		if !sel.Test(uint(row)) {
			continue
		}
		for pi, poly := range g.Polys {
			v := poly.EvalAt(row, p)
			if val, ok := v.Get(); ok {
				if !p.f.IsZero(val) {
					failures = append(failures, GateFailure{
						Gate:   g.Name,
						Poly:   pi,
						Row:    row,
						Region: p.regionAt(row),
						Value:  p.f.String(val),
					})
				}
				continue
			}
			failures = p.unassignedCells(g.Name, poly, row, failures)
		}
	}
	return failures
}

// unassignedCells reports every in-grid cell queried by poly at row that was
// never assigned. The evaluation came back unknown, so there is at least
// one.
func (p *Prover[E]) unassignedCells(gate string, poly frontend.Expression[E], row int, failures []Failure) []Failure {
	cells, _ := frontend.Queries(poly)
	for _, q := range cells {
		r := row + int(q.Rot)
		if r < 0 || r >= p.n {
			continue
		}
		var known bool
		switch q.Col.Kind {
		case frontend.Advice:
			known = p.advice[q.Col.Index][r].IsKnown()
		case frontend.Fixed:
			known = p.fixed[q.Col.Index][r].IsKnown()
		default:
			known = true // instance reads never come back unknown
		}
		if !known {
			failures = append(failures, UnassignedFailure{
				Gate:   gate,
				Row:    row,
				Cell:   frontend.Cell{Column: q.Col, Row: r},
				Region: p.regionAt(row),
			})
		}
	}
	return failures
}

func (p *Prover[E]) verifyCopies(failures []Failure) []Failure {
	for _, c := range p.copies {
		va, oka := p.cellValue(c.a)
		vb, okb := p.cellValue(c.b)
		if oka && okb && p.f.Equal(va, vb) {
			continue
		}
		failures = append(failures, EqualityFailure{
			A:     c.a,
			B:     c.b,
			ValA:  p.renderValue(va, oka),
			ValB:  p.renderValue(vb, okb),
			Stack: p.symbols.Sprint(c.stack),
		})
	}
	return failures
}

func (p *Prover[E]) renderValue(v E, known bool) string {
	if !known {
		return "unknown"
	}
	return p.f.String(v)
}
