// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package mock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/bits-and-blooms/bitset"
	"github.com/blang/semver/v4"
	"github.com/consensys/grille"
	"github.com/consensys/grille/field"
	"github.com/consensys/grille/frontend"
	"github.com/consensys/grille/internal/ioutils"
	"github.com/consensys/grille/logger"
	"github.com/icza/bitio"
)

// WriteTo serializes the filled grid to w: column values with their
// assignment bitmaps, public input vectors, selector assignments, copy
// constraints and region spans, behind a version and modulus header.
func (p *Prover[E]) WriteTo(w io.Writer) (int64, error) {
	wc := &ioutils.WriterCounter{W: w}

	if err := writeString(wc, grille.Version.String()); err != nil {
		return wc.N, err
	}
	if err := writeString(wc, p.f.Modulus().Text(16)); err != nil {
		return wc.N, err
	}
	if err := binary.Write(wc, binary.LittleEndian, uint32(p.k)); err != nil {
		return wc.N, err
	}

	for i := range p.advice {
		if err := p.writeValueColumn(wc, p.advice[i], p.assignedAdvice[i]); err != nil {
			return wc.N, err
		}
	}
	for i := range p.fixed {
		if err := p.writeValueColumn(wc, p.fixed[i], p.assignedFixed[i]); err != nil {
			return wc.N, err
		}
	}

	for _, vec := range p.instance {
		if err := binary.Write(wc, binary.LittleEndian, uint32(len(vec))); err != nil {
			return wc.N, err
		}
		for _, v := range vec {
			if _, err := wc.Write(p.f.Bytes(v)); err != nil {
				return wc.N, err
			}
		}
	}

	for _, sel := range p.selectors {
		if err := writeBitset(wc, sel); err != nil {
			return wc.N, err
		}
	}

	flat := make([]uint32, 0, 6*len(p.copies))
	for _, c := range p.copies {
		flat = append(flat,
			uint32(c.a.Column.Kind), uint32(c.a.Column.Index), uint32(c.a.Row),
			uint32(c.b.Column.Kind), uint32(c.b.Column.Index), uint32(c.b.Row),
		)
	}
	if _, err := ioutils.CompressAndWriteUints32(wc, flat, nil); err != nil {
		return wc.N, err
	}

	if err := binary.Write(wc, binary.LittleEndian, uint32(len(p.regions))); err != nil {
		return wc.N, err
	}
	for _, r := range p.regions {
		if err := writeString(wc, r.name); err != nil {
			return wc.N, err
		}
		if err := binary.Write(wc, binary.LittleEndian, int32(r.min)); err != nil {
			return wc.N, err
		}
		if err := binary.Write(wc, binary.LittleEndian, int32(r.max)); err != nil {
			return wc.N, err
		}
	}

	return wc.N, nil
}

// ReadGrid deserializes a grid previously written with WriteTo, over the
// constraint system it was synthesized against. The public input vectors
// travel with the grid.
func ReadGrid[E any](cs *frontend.ConstraintSystem[E], r io.Reader) (*Prover[E], error) {
	if cs == nil {
		return nil, fmt.Errorf("%w: nil constraint system", frontend.ErrConfiguration)
	}
	rc := &ioutils.ReaderCounter{R: r}
	log := logger.Logger()

	version, err := readString(rc)
	if err != nil {
		return nil, err
	}
	objectVersion, err := semver.Parse(version)
	if err != nil {
		return nil, fmt.Errorf("when parsing grille version: %w", err)
	}
	if grille.Version.Compare(objectVersion) != 0 {
		log.Warn().Str("binary", grille.Version.String()).Str("object", objectVersion.String()).Msg("grille version (binary) mismatch with witness grid. there are no guarantees on compatibility")
	}

	modulus, err := readString(rc)
	if err != nil {
		return nil, err
	}
	scalarField := new(big.Int)
	if _, ok := scalarField.SetString(modulus, 16); !ok {
		return nil, fmt.Errorf("when parsing serialized modulus: %s", modulus)
	}
	if scalarField.Cmp(cs.Field().Modulus()) != 0 {
		return nil, fmt.Errorf("unsupported scalar field %s", scalarField.Text(16))
	}

	var k uint32
	if err := binary.Read(rc, binary.LittleEndian, &k); err != nil {
		return nil, err
	}
	p, err := New(cs, int(k), make([][]E, cs.NbInstanceColumns()))
	if err != nil {
		return nil, err
	}

	for i := range p.advice {
		if p.advice[i], p.assignedAdvice[i], err = readValueColumn(rc, p.f, p.n); err != nil {
			return nil, err
		}
	}
	for i := range p.fixed {
		if p.fixed[i], p.assignedFixed[i], err = readValueColumn(rc, p.f, p.n); err != nil {
			return nil, err
		}
	}

	valBuf := make([]byte, p.f.NbBytes())
	for i := range p.instance {
		var length uint32
		if err := binary.Read(rc, binary.LittleEndian, &length); err != nil {
			return nil, err
		}
		if int(length) > p.n {
			return nil, fmt.Errorf("invalid grid: public input vector %d has %d values for a %d-row grid", i, length, p.n)
		}
		vec := make([]E, length)
		for j := range vec {
			if _, err := io.ReadFull(rc, valBuf); err != nil {
				return nil, err
			}
			if vec[j], err = p.f.FromBytes(valBuf); err != nil {
				return nil, fmt.Errorf("invalid grid: %w", err)
			}
		}
		p.instance[i] = vec
	}

	for i := range p.selectors {
		if p.selectors[i], err = readBitset(rc, p.n); err != nil {
			return nil, err
		}
	}

	_, flat, err := ioutils.ReadAndDecompressUints32(rc)
	if err != nil {
		return nil, err
	}
	if len(flat)%6 != 0 {
		return nil, errors.New("invalid grid: malformed copy constraints")
	}
	p.copies = make([]copyConstraint, 0, len(flat)/6)
	for i := 0; i < len(flat); i += 6 {
		c := copyConstraint{
			a: frontend.Cell{Column: frontend.Column{Kind: frontend.ColumnKind(flat[i]), Index: int(flat[i+1])}, Row: int(flat[i+2])},
			b: frontend.Cell{Column: frontend.Column{Kind: frontend.ColumnKind(flat[i+3]), Index: int(flat[i+4])}, Row: int(flat[i+5])},
		}
		if err := p.cellInGrid(c.a); err != nil {
			return nil, fmt.Errorf("invalid grid: %w", err)
		}
		if err := p.cellInGrid(c.b); err != nil {
			return nil, fmt.Errorf("invalid grid: %w", err)
		}
		p.copies = append(p.copies, c)
	}

	var nbRegions uint32
	if err := binary.Read(rc, binary.LittleEndian, &nbRegions); err != nil {
		return nil, err
	}
	p.regions = make([]regionSpan, nbRegions)
	for i := range p.regions {
		if p.regions[i].name, err = readString(rc); err != nil {
			return nil, err
		}
		var span [2]int32
		if err := binary.Read(rc, binary.LittleEndian, &span); err != nil {
			return nil, err
		}
		p.regions[i].min, p.regions[i].max = int(span[0]), int(span[1])
	}

	log.Debug().Int64("bytes", rc.N).Int("k", p.k).Msg("read witness grid")

	return p, nil
}

// writeValueColumn writes the column's assignment bitmap, a bit-packed
// known-value bitmap, then the known values in row order.
func (p *Prover[E]) writeValueColumn(w io.Writer, col []frontend.Value[E], assigned *bitset.BitSet) error {
	if err := writeBitset(w, assigned); err != nil {
		return err
	}

	var buf bytes.Buffer
	bw := bitio.NewWriter(&buf)
	for _, v := range col {
		if err := bw.WriteBool(v.IsKnown()); err != nil {
			return err
		}
	}
	if err := bw.Close(); err != nil {
		return err
	}
	if err := writeBytes(w, buf.Bytes()); err != nil {
		return err
	}

	for _, v := range col {
		if e, ok := v.Get(); ok {
			if _, err := w.Write(p.f.Bytes(e)); err != nil {
				return err
			}
		}
	}
	return nil
}

func readValueColumn[E any](r io.Reader, f field.Field[E], n int) ([]frontend.Value[E], *bitset.BitSet, error) {
	assigned, err := readBitset(r, n)
	if err != nil {
		return nil, nil, err
	}

	bits, err := readBytes(r)
	if err != nil {
		return nil, nil, err
	}
	br := bitio.NewReader(bytes.NewReader(bits))
	known := make([]bool, n)
	for i := range known {
		if known[i], err = br.ReadBool(); err != nil {
			return nil, nil, err
		}
		if known[i] && !assigned.Test(uint(i)) {
			return nil, nil, errors.New("invalid grid: known cell not marked assigned")
		}
	}

	col := make([]frontend.Value[E], n)
	valBuf := make([]byte, f.NbBytes())
	for i := range col {
		if !known[i] {
			continue
		}
		if _, err := io.ReadFull(r, valBuf); err != nil {
			return nil, nil, err
		}
		e, err := f.FromBytes(valBuf)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid grid: %w", err)
		}
		col[i] = frontend.Known(e)
	}
	return col, assigned, nil
}

const maxSectionLen = 1 << 30

func writeBytes(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > maxSectionLen {
		return nil, errors.New("invalid grid: section too large")
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readString(r io.Reader) (string, error) {
	data, err := readBytes(r)
	return string(data), err
}

func writeBitset(w io.Writer, b *bitset.BitSet) error {
	data, err := b.MarshalBinary()
	if err != nil {
		return err
	}
	return writeBytes(w, data)
}

func readBitset(r io.Reader, n int) (*bitset.BitSet, error) {
	data, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	b := new(bitset.BitSet)
	if err := b.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if int(b.Len()) != n {
		return nil, fmt.Errorf("invalid grid: bitmap covers %d rows, want %d", b.Len(), n)
	}
	return b, nil
}
