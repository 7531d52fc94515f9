// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package mock

import (
	"fmt"
	"slices"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/grille/debug"
	"github.com/consensys/grille/field"
	"github.com/consensys/grille/frontend"
	"github.com/consensys/grille/logger"
	"github.com/consensys/grille/profile"
)

// Prover holds a 2^k-row witness grid for one constraint system. It is the
// assignment backend handed to the layouter during synthesis, and the table
// gate polynomials are evaluated against during verification.
type Prover[E any] struct {
	f  field.Field[E]
	cs *frontend.ConstraintSystem[E]
	k  int
	n  int

	advice [][]frontend.Value[E] // column-major
	fixed  [][]frontend.Value[E]
	// instance holds one public input vector per instance column; rows past
	// the end of a vector read as zero.
	instance  [][]E
	selectors []*bitset.BitSet

	// write-once guards; a cell assigned Unknown is assigned all the same
	assignedAdvice []*bitset.BitSet
	assignedFixed  []*bitset.BitSet

	copies  []copyConstraint
	regions []regionSpan
	current int

	// symbols interns the stacks collected at copy-constraint declaration
	// sites, so equality failures can point back at circuit code.
	symbols debug.SymbolTable
}

type copyConstraint struct {
	a, b  frontend.Cell
	stack []int
}

type regionSpan struct {
	name string
	// min > max when the region never wrote a cell
	min, max int
}

const maxK = 30

// Run configures circuit over f, synthesizes it into a fresh 2^k-row grid
// against the given public input vectors (one per instance column), and
// returns the filled prover, ready for Verify.
func Run[E any](f field.Field[E], circuit frontend.Circuit[E], k int, instance [][]E, opts ...frontend.ConfigureOption) (*Prover[E], error) {
	cs, err := frontend.Configure(f, circuit, opts...)
	if err != nil {
		return nil, err
	}
	return RunWithConstraintSystem(cs, circuit, k, instance)
}

// RunWithConstraintSystem synthesizes circuit against an already configured
// constraint system. Configuration is witness-independent; reusing it across
// witnesses of the same circuit shape skips the Configure pass.
func RunWithConstraintSystem[E any](cs *frontend.ConstraintSystem[E], circuit frontend.Circuit[E], k int, instance [][]E) (*Prover[E], error) {
	p, err := New(cs, k, instance)
	if err != nil {
		return nil, err
	}
	l, err := frontend.NewLayouter(cs, p.n, p)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if err := frontend.Synthesize(circuit, l); err != nil {
		return nil, err
	}

	log := logger.Logger()
	log.Debug().Dur("took", time.Since(start)).Int("k", p.k).Int("nbRows", p.n).Int("nbRegions", len(p.regions)).Int("nbCopies", len(p.copies)).Msg("synthesized witness grid")

	return p, nil
}

// New returns an empty 2^k-row grid over cs with the given public input
// vectors, one per instance column. Each vector must fit the grid.
func New[E any](cs *frontend.ConstraintSystem[E], k int, instance [][]E) (*Prover[E], error) {
	if cs == nil {
		return nil, fmt.Errorf("%w: nil constraint system", frontend.ErrConfiguration)
	}
	if k < 0 || k > maxK {
		return nil, fmt.Errorf("%w: grid size parameter k=%d outside [0, %d]", frontend.ErrConfiguration, k, maxK)
	}
	n := 1 << k
	if len(instance) != cs.NbInstanceColumns() {
		return nil, fmt.Errorf("%w: got %d public input vectors for %d instance columns", frontend.ErrConfiguration, len(instance), cs.NbInstanceColumns())
	}
	for i, vec := range instance {
		if len(vec) > n {
			return nil, fmt.Errorf("%w: public input vector %d has %d values for a %d-row grid", frontend.ErrConfiguration, i, len(vec), n)
		}
	}

	p := &Prover[E]{
		f:        cs.Field(),
		cs:       cs,
		k:        k,
		n:        n,
		instance: make([][]E, len(instance)),
		current:  -1,
		symbols:  debug.NewSymbolTable(),
	}
	for i, vec := range instance {
		p.instance[i] = slices.Clone(vec)
	}
	p.advice, p.assignedAdvice = newColumns[E](cs.NbAdviceColumns(), n)
	p.fixed, p.assignedFixed = newColumns[E](cs.NbFixedColumns(), n)
	p.selectors = make([]*bitset.BitSet, cs.NbSelectors())
	for i := range p.selectors {
		p.selectors[i] = bitset.New(uint(n))
	}
	return p, nil
}

func newColumns[E any](nb, n int) ([][]frontend.Value[E], []*bitset.BitSet) {
	cols := make([][]frontend.Value[E], nb)
	assigned := make([]*bitset.BitSet, nb)
	for i := range cols {
		cols[i] = make([]frontend.Value[E], n)
		assigned[i] = bitset.New(uint(n))
	}
	return cols, assigned
}

// K returns the grid size parameter; the grid has 2^K rows.
func (p *Prover[E]) K() int { return p.k }

// ConstraintSystem returns the system the grid is checked against.
func (p *Prover[E]) ConstraintSystem() *frontend.ConstraintSystem[E] { return p.cs }

// Field implements frontend.Table.
func (p *Prover[E]) Field() field.Field[E] { return p.f }

// NbRows implements frontend.Table.
func (p *Prover[E]) NbRows() int { return p.n }

// Advice implements frontend.Table.
func (p *Prover[E]) Advice(col frontend.Column, row int) frontend.Value[E] {
	return p.advice[col.Index][row]
}

// Fixed implements frontend.Table.
func (p *Prover[E]) Fixed(col frontend.Column, row int) frontend.Value[E] {
	return p.fixed[col.Index][row]
}

// Instance implements frontend.Table. Rows past the end of the column's
// public input vector read as zero.
func (p *Prover[E]) Instance(col frontend.Column, row int) frontend.Value[E] {
	if vec := p.instance[col.Index]; row < len(vec) {
		return frontend.Known(vec[row])
	}
	return frontend.Known(p.f.Zero())
}

// Selector implements frontend.Table.
func (p *Prover[E]) Selector(s frontend.Selector, row int) bool {
	return p.selectors[s.Index()].Test(uint(row))
}

// EnterRegion implements frontend.Assignment.
func (p *Prover[E]) EnterRegion(name string) {
	p.regions = append(p.regions, regionSpan{name: name, min: p.n, max: -1})
	p.current = len(p.regions) - 1
}

// ExitRegion implements frontend.Assignment.
func (p *Prover[E]) ExitRegion() { p.current = -1 }

// EnableSelector implements frontend.Assignment. Activating an already
// active selector is a no-op.
func (p *Prover[E]) EnableSelector(s frontend.Selector, row int) error {
	if s.Index() < 0 || s.Index() >= len(p.selectors) {
		return fmt.Errorf("%w: %s not declared", frontend.ErrSynthesis, s)
	}
	if err := p.gridRow(row); err != nil {
		return err
	}
	p.selectors[s.Index()].Set(uint(row))
	p.touch(row)
	return nil
}

// AssignAdvice implements frontend.Assignment. Cells are write-once per
// witness; assigning a cell twice fails, even with an equal value.
func (p *Prover[E]) AssignAdvice(col frontend.Column, row int, v frontend.Value[E]) error {
	return p.assign(frontend.Advice, p.advice, p.assignedAdvice, col, row, v)
}

// AssignFixed implements frontend.Assignment.
func (p *Prover[E]) AssignFixed(col frontend.Column, row int, c E) error {
	return p.assign(frontend.Fixed, p.fixed, p.assignedFixed, col, row, frontend.Known(c))
}

func (p *Prover[E]) assign(kind frontend.ColumnKind, cols [][]frontend.Value[E], assigned []*bitset.BitSet, col frontend.Column, row int, v frontend.Value[E]) error {
	if col.Kind != kind || col.Index < 0 || col.Index >= len(cols) {
		return fmt.Errorf("%w: column %s not declared", frontend.ErrSynthesis, col)
	}
	if err := p.gridRow(row); err != nil {
		return err
	}
	if assigned[col.Index].Test(uint(row)) {
		return fmt.Errorf("%w: cell %s already assigned", frontend.ErrSynthesis, frontend.Cell{Column: col, Row: row})
	}
	cols[col.Index][row] = v
	assigned[col.Index].Set(uint(row))
	p.touch(row)
	profile.RecordAssignment()
	return nil
}

// Copy implements frontend.Assignment. The declaration site's call stack is
// recorded so an eventual EqualityFailure can name it.
func (p *Prover[E]) Copy(a, b frontend.Cell) error {
	if err := p.cellInGrid(a); err != nil {
		return err
	}
	if err := p.cellInGrid(b); err != nil {
		return err
	}
	p.copies = append(p.copies, copyConstraint{a: a, b: b, stack: p.symbols.CollectStack()})
	return nil
}

// InstanceValue implements frontend.Assignment.
func (p *Prover[E]) InstanceValue(col frontend.Column, row int) (frontend.Value[E], error) {
	if col.Kind != frontend.Instance || col.Index < 0 || col.Index >= len(p.instance) {
		return frontend.Value[E]{}, fmt.Errorf("%w: column %s not declared", frontend.ErrConfiguration, col)
	}
	if row < 0 || row >= p.n {
		return frontend.Value[E]{}, fmt.Errorf("%w: instance row %d outside the %d-row grid", frontend.ErrConfiguration, row, p.n)
	}
	return p.Instance(col, row), nil
}

func (p *Prover[E]) gridRow(row int) error {
	if row < 0 || row >= p.n {
		return fmt.Errorf("%w: row %d outside the %d-row grid", frontend.ErrSynthesis, row, p.n)
	}
	return nil
}

func (p *Prover[E]) cellInGrid(c frontend.Cell) error {
	var nb int
	switch c.Column.Kind {
	case frontend.Advice:
		nb = len(p.advice)
	case frontend.Fixed:
		nb = len(p.fixed)
	case frontend.Instance:
		nb = len(p.instance)
	default:
		return fmt.Errorf("%w: cell %s has unknown column kind", frontend.ErrConfiguration, c)
	}
	if c.Column.Index < 0 || c.Column.Index >= nb {
		return fmt.Errorf("%w: column %s not declared", frontend.ErrConfiguration, c.Column)
	}
	if c.Row < 0 || c.Row >= p.n {
		return fmt.Errorf("%w: cell %s outside the %d-row grid", frontend.ErrConfiguration, c, p.n)
	}
	return nil
}

func (p *Prover[E]) touch(row int) {
	if p.current < 0 {
		return
	}
	r := &p.regions[p.current]
	r.min = min(r.min, row)
	r.max = max(r.max, row)
}

// regionAt names the region whose writes cover row, for failure reports.
// Later regions shadow earlier ones; empty when no region wrote the row.
func (p *Prover[E]) regionAt(row int) string {
	for i := len(p.regions) - 1; i >= 0; i-- {
		if r := p.regions[i]; row >= r.min && row <= r.max {
			return r.name
		}
	}
	return ""
}

func (p *Prover[E]) cellValue(c frontend.Cell) (E, bool) {
	switch c.Column.Kind {
	case frontend.Advice:
		return p.advice[c.Column.Index][c.Row].Get()
	case frontend.Fixed:
		return p.fixed[c.Column.Index][c.Row].Get()
	default:
		return p.Instance(c.Column, c.Row).Get()
	}
}
