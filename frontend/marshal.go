// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package frontend

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"

	"github.com/blang/semver/v4"
	"github.com/consensys/grille"
	"github.com/consensys/grille/field"
	"github.com/consensys/grille/logger"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"
)

// ToBytes serializes the constraint system to a byte slice. The system must
// be sealed; Configure returns sealed systems.
//
// The encoding is deterministic: two equal systems serialize to the same
// bytes.
func (cs *ConstraintSystem[E]) ToBytes() ([]byte, error) {
	if !cs.sealed {
		return nil, fmt.Errorf("%w: cannot serialize an unsealed constraint system", ErrConfiguration)
	}

	// gates carry the bulk of the data; encode them separately from the
	// body so both sections can be prepared (and later decoded) in parallel.
	var gates []byte
	var g errgroup.Group
	g.Go(func() error {
		var err error
		gates, err = cs.gatesToBytes()
		return err
	})
	body, err := cs.bodyToBytes()
	if err != nil {
		return nil, err
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := header{
		gatesLen: uint64(len(gates)),
		bodyLen:  uint64(len(body)),
	}

	buf := h.toBytes()
	buf = append(buf, gates...)
	buf = append(buf, body...)

	return buf, nil
}

// FromBytes deserializes a constraint system from data into cs, which must be
// empty (fresh from NewSystem, over the same field the system was serialized
// with). It returns the number of bytes read and seals cs.
func (cs *ConstraintSystem[E]) FromBytes(data []byte) (int, error) {
	if cs.sealed || cs.nbAdvice != 0 || cs.nbFixed != 0 || cs.nbInstance != 0 || cs.nbSelectors != 0 || len(cs.gates) != 0 {
		return 0, fmt.Errorf("%w: FromBytes needs an empty constraint system", ErrConfiguration)
	}
	if len(data) < headerLen {
		return 0, errors.New("invalid data length")
	}

	h := new(header)
	h.fromBytes(data)

	if len(data) < headerLen+int(h.gatesLen)+int(h.bodyLen) {
		return 0, errors.New("invalid data length")
	}

	var sGates []serializedGate
	var g errgroup.Group
	g.Go(func() error {
		return decodeSection(data[headerLen:headerLen+int(h.gatesLen)], &sGates)
	})

	var s serializedSystem
	if err := decodeSection(data[headerLen+int(h.gatesLen):headerLen+int(h.gatesLen)+int(h.bodyLen)], &s); err != nil {
		return 0, err
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := cs.checkSerializationHeader(&s); err != nil {
		return 0, err
	}
	if s.NbAdvice < 0 || s.NbFixed < 0 || s.NbInstance < 0 || s.NbSelectors < 0 {
		return 0, errors.New("invalid serialized constraint system: negative column count")
	}
	cs.nbAdvice = s.NbAdvice
	cs.nbFixed = s.NbFixed
	cs.nbInstance = s.NbInstance
	cs.nbSelectors = s.NbSelectors

	for _, col := range s.Equality {
		if !cs.columnExists(col) {
			return 0, fmt.Errorf("invalid serialized constraint system: equality on undeclared column %s", col)
		}
		cs.equality[col] = struct{}{}
	}
	if s.Constants != nil {
		col := *s.Constants
		if col.Kind != Fixed || !cs.columnExists(col) {
			return 0, fmt.Errorf("invalid serialized constraint system: bad constants column %s", col)
		}
		cs.constants = col
		cs.hasConstants = true
	}

	cs.gates = make([]Gate[E], 0, len(sGates))
	for _, sg := range sGates {
		if sg.Selector < 0 || sg.Selector >= cs.nbSelectors {
			return 0, fmt.Errorf("invalid serialized constraint system: gate %q references undeclared selector[%d]", sg.Name, sg.Selector)
		}
		gate := Gate[E]{
			Name:     sg.Name,
			Selector: Selector{index: sg.Selector},
			Polys:    make([]Expression[E], len(sg.Polys)),
		}
		for j, prog := range sg.Polys {
			p, err := buildExpr(cs, prog)
			if err != nil {
				return 0, fmt.Errorf("invalid serialized constraint system: gate %q: %w", sg.Name, err)
			}
			gate.Polys[j] = p
		}
		cs.addGate(gate)
	}

	cs.seal()
	return headerLen + int(h.gatesLen) + int(h.bodyLen), nil
}

// WriteTo writes the serialized constraint system to w.
func (cs *ConstraintSystem[E]) WriteTo(w io.Writer) (int64, error) {
	b, err := cs.ToBytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// ReadFrom reads a serialized constraint system from r into cs, which must
// be empty. It consumes r entirely.
func (cs *ConstraintSystem[E]) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	n, err := cs.FromBytes(data)
	return int64(n), err
}

const headerLen = 2 * 8

type header struct {
	// length in bytes of each section
	gatesLen uint64
	bodyLen  uint64
}

func (h *header) toBytes() []byte {
	buf := make([]byte, 0, headerLen+h.gatesLen+h.bodyLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.gatesLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.bodyLen)
	return buf
}

func (h *header) fromBytes(buf []byte) {
	h.gatesLen = binary.LittleEndian.Uint64(buf[:8])
	h.bodyLen = binary.LittleEndian.Uint64(buf[8:16])
}

// serializedSystem is the CBOR body: everything but the gates.
type serializedSystem struct {
	GrilleVersion string
	ScalarField   string // hex
	NbAdvice      int
	NbFixed       int
	NbInstance    int
	NbSelectors   int
	Equality      []Column
	Constants     *Column
}

type serializedGate struct {
	Name     string
	Selector int
	Polys    [][]instruction
}

// instruction is one step of a gate polynomial flattened to postfix order.
// Operand instructions push a node; operator instructions pop one or two.
type instruction struct {
	Op    uint8
	Index int
	Rot   int
	Val   []byte
}

const (
	opConstant uint8 = iota + 1
	opAdvice
	opFixed
	opInstance
	opSelector
	opAdd
	opSub
	opMul
	opNeg
)

func (cs *ConstraintSystem[E]) bodyToBytes() ([]byte, error) {
	cols := make([]Column, 0, len(cs.equality))
	for col := range cs.equality {
		cols = append(cols, col)
	}
	slices.SortFunc(cols, func(a, b Column) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return a.Index - b.Index
	})

	s := serializedSystem{
		GrilleVersion: grille.Version.String(),
		ScalarField:   cs.f.Modulus().Text(16),
		NbAdvice:      cs.nbAdvice,
		NbFixed:       cs.nbFixed,
		NbInstance:    cs.nbInstance,
		NbSelectors:   cs.nbSelectors,
		Equality:      cols,
	}
	if cs.hasConstants {
		c := cs.constants
		s.Constants = &c
	}

	return encodeSection(&s)
}

func (cs *ConstraintSystem[E]) gatesToBytes() ([]byte, error) {
	sGates := make([]serializedGate, len(cs.gates))
	for i, g := range cs.gates {
		sg := serializedGate{
			Name:     g.Name,
			Selector: g.Selector.index,
			Polys:    make([][]instruction, len(g.Polys)),
		}
		for j, p := range g.Polys {
			sg.Polys[j] = flattenExpr(p, cs.f, nil)
		}
		sGates[i] = sg
	}

	return encodeSection(sGates)
}

func encodeSection(v any) ([]byte, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := enc.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSection(data []byte, v any) error {
	dm, err := cbor.DecOptions{
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DecMode()
	if err != nil {
		return err
	}
	return dm.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// checkSerializationHeader verifies the version and scalar field stored with
// a serialized constraint system against the running binary and cs's field.
func (cs *ConstraintSystem[E]) checkSerializationHeader(s *serializedSystem) error {
	binaryVersion := grille.Version
	objectVersion, err := semver.Parse(s.GrilleVersion)
	if err != nil {
		return fmt.Errorf("when parsing grille version: %w", err)
	}

	if binaryVersion.Compare(objectVersion) != 0 {
		log := logger.Logger()
		log.Warn().Str("binary", binaryVersion.String()).Str("object", objectVersion.String()).Msg("grille version (binary) mismatch with constraint system. there are no guarantees on compatibility")
	}

	scalarField := new(big.Int)
	if _, ok := scalarField.SetString(s.ScalarField, 16); !ok {
		return fmt.Errorf("when parsing serialized modulus: %s", s.ScalarField)
	}
	if scalarField.Cmp(cs.f.Modulus()) != 0 {
		return fmt.Errorf("unsupported scalar field %s", scalarField.Text(16))
	}
	return nil
}

// flattenExpr appends e to out in postfix order.
func flattenExpr[E any](e Expression[E], f field.Field[E], out []instruction) []instruction {
	switch t := e.(type) {
	case constExpr[E]:
		return append(out, instruction{Op: opConstant, Val: f.Bytes(t.v)})
	case adviceQuery[E]:
		return append(out, instruction{Op: opAdvice, Index: t.col.Index, Rot: int(t.rot)})
	case fixedQuery[E]:
		return append(out, instruction{Op: opFixed, Index: t.col.Index, Rot: int(t.rot)})
	case instanceQuery[E]:
		return append(out, instruction{Op: opInstance, Index: t.col.Index, Rot: int(t.rot)})
	case selectorQuery[E]:
		return append(out, instruction{Op: opSelector, Index: t.sel.index})
	case addExpr[E]:
		out = flattenExpr(t.a, f, out)
		out = flattenExpr(t.b, f, out)
		return append(out, instruction{Op: opAdd})
	case subExpr[E]:
		out = flattenExpr(t.a, f, out)
		out = flattenExpr(t.b, f, out)
		return append(out, instruction{Op: opSub})
	case mulExpr[E]:
		out = flattenExpr(t.a, f, out)
		out = flattenExpr(t.b, f, out)
		return append(out, instruction{Op: opMul})
	case negExpr[E]:
		out = flattenExpr(t.a, f, out)
		return append(out, instruction{Op: opNeg})
	default:
		panic(fmt.Sprintf("unknown expression type %T", e))
	}
}

var errMalformedGate = errors.New("malformed gate polynomial")

// buildExpr rebuilds an expression from its postfix instruction stream,
// validating every column and selector reference against cs.
func buildExpr[E any](cs *ConstraintSystem[E], prog []instruction) (Expression[E], error) {
	stack := make([]Expression[E], 0, len(prog))
	for _, ins := range prog {
		switch ins.Op {
		case opConstant:
			v, err := cs.f.FromBytes(ins.Val)
			if err != nil {
				return nil, fmt.Errorf("decode constant: %w", err)
			}
			stack = append(stack, constExpr[E]{v: v})
		case opAdvice:
			col := Column{Kind: Advice, Index: ins.Index}
			if !cs.columnExists(col) {
				return nil, fmt.Errorf("query of undeclared column %s", col)
			}
			stack = append(stack, adviceQuery[E]{col: col, rot: Rotation(ins.Rot)})
		case opFixed:
			col := Column{Kind: Fixed, Index: ins.Index}
			if !cs.columnExists(col) {
				return nil, fmt.Errorf("query of undeclared column %s", col)
			}
			stack = append(stack, fixedQuery[E]{col: col, rot: Rotation(ins.Rot)})
		case opInstance:
			col := Column{Kind: Instance, Index: ins.Index}
			if !cs.columnExists(col) {
				return nil, fmt.Errorf("query of undeclared column %s", col)
			}
			stack = append(stack, instanceQuery[E]{col: col, rot: Rotation(ins.Rot)})
		case opSelector:
			if ins.Index < 0 || ins.Index >= cs.nbSelectors {
				return nil, fmt.Errorf("query of undeclared selector[%d]", ins.Index)
			}
			stack = append(stack, selectorQuery[E]{sel: Selector{index: ins.Index}})
		case opAdd, opSub, opMul:
			if len(stack) < 2 {
				return nil, errMalformedGate
			}
			a, b := stack[len(stack)-2], stack[len(stack)-1]
			stack = stack[:len(stack)-2]
			switch ins.Op {
			case opAdd:
				stack = append(stack, addExpr[E]{a: a, b: b})
			case opSub:
				stack = append(stack, subExpr[E]{a: a, b: b})
			case opMul:
				stack = append(stack, mulExpr[E]{a: a, b: b})
			}
		case opNeg:
			if len(stack) < 1 {
				return nil, errMalformedGate
			}
			stack[len(stack)-1] = negExpr[E]{a: stack[len(stack)-1]}
		default:
			return nil, fmt.Errorf("unknown opcode %d", ins.Op)
		}
	}
	if len(stack) != 1 {
		return nil, errMalformedGate
	}
	return stack[0], nil
}
