package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

// Fixture is an analysis input.
type Fixture struct {
	Name   string
	Body   *mir.Body
	Facts  *oracle.Facts
	Expect Expect
}

// Expect is what the analysis of a fixture should find. Empty fields are
// not checked. Capabilities of places not listed are not checked either.
type Expect struct {
	// After holds capabilities after instructions at given locations.
	After map[mir.Location]capability.PlaceCapabilities

	// Return holds capabilities every return point agrees on.
	Return capability.PlaceCapabilities

	// Unreached lists blocks the analysis must not reach.
	Unreached []mir.BlockID

	// Reports lists rules failed checks are reported for, in order.
	Reports []validity.Rule

	// Error is a part of the analysis error message.
	Error string
}

// value is a scalar YAML value remembering where it was.
type value struct {
	text   string
	line   int
	column int
}

func (v *value) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d column %d: scalar value expected", n.Line, n.Column)
	}

	*v = value{
		text:   n.Value,
		line:   n.Line,
		column: n.Column,
	}
	return nil
}

type document struct {
	Name      string           `yaml:"name"`
	Types     []value          `yaml:"types"`
	Functions map[string]value `yaml:"functions"`
	Locals    []value          `yaml:"locals"`
	Args      int              `yaml:"args"`
	Blocks    []blockDocument  `yaml:"blocks"`
	Facts     factsDocument    `yaml:"facts"`
	Expect    expectDocument   `yaml:"expect"`
}

type blockDocument struct {
	Statements []value `yaml:"statements"`
	Terminator value   `yaml:"terminator"`
}

type factsDocument struct {
	Outlives    []value `yaml:"outlives"`
	Loans       []value `yaml:"loans"`
	Invalidated []value `yaml:"invalidated"`
	Live        []value `yaml:"live"`
	Partial     bool    `yaml:"partial"`
}

type expectDocument struct {
	After     map[string]value `yaml:"after"`
	Return    *value           `yaml:"return"`
	Unreached []value          `yaml:"unreached"`
	Reports   []value          `yaml:"reports"`
	Error     string           `yaml:"error"`
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return res, nil
}

// Parse parses fixture data.
func Parse(data []byte) (*Fixture, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty fixture")
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	b := &builder{
		types: map[string]*mir.Ty{},
		funcs: map[string]*mir.FnSig{},
	}
	body, err := b.body(&doc)
	if err != nil {
		return nil, err
	}
	facts, err := b.facts(&doc.Facts)
	if err != nil {
		return nil, fmt.Errorf("facts: %w", err)
	}
	expect, err := b.expect(&doc.Expect)
	if err != nil {
		return nil, fmt.Errorf("expect: %w", err)
	}

	return &Fixture{
		Name:   doc.Name,
		Body:   body,
		Facts:  facts,
		Expect: expect,
	}, nil
}

type builder struct {
	types map[string]*mir.Ty
	funcs map[string]*mir.FnSig
}

func parseValue[T any](b *builder, v value, f func(*parser) T) (T, error) {
	res, err := parse(v.text, b.types, b.funcs, f)
	if err != nil {
		var serr *SyntaxError
		if errors.As(err, &serr) {
			serr.Line, serr.Column, serr.Source = v.line, v.column, v.text
		}
		return res, err
	}

	return res, nil
}

func (b *builder) body(doc *document) (*mir.Body, error) {
	for i, v := range doc.Types {
		if _, err := parseValue(b, v, (*parser).ty); err != nil {
			return nil, fmt.Errorf("type %d: %w", i, err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(doc.Functions)) {
		sig, err := parseValue(b, doc.Functions[name], (*parser).signature)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", name, err)
		}
		b.funcs[name] = sig
	}

	body := &mir.Body{
		Name:     doc.Name,
		ArgCount: doc.Args,
	}
	for i, v := range doc.Locals {
		decl, err := parseValue(b, v, (*parser).localDecl)
		if err != nil {
			return nil, fmt.Errorf("local _%d: %w", i, err)
		}
		body.Locals = append(body.Locals, decl)
	}

	for i, bd := range doc.Blocks {
		var blk mir.Block
		for j, v := range bd.Statements {
			st, err := parseValue(b, v, (*parser).statement)
			if err != nil {
				return nil, fmt.Errorf("bb%d[%d]: %w", i, j, err)
			}
			blk.Statements = append(blk.Statements, st)
		}

		term, err := parseValue(b, bd.Terminator, (*parser).terminator)
		if err != nil {
			return nil, fmt.Errorf("bb%d terminator: %w", i, err)
		}
		blk.Terminator = term
		body.Blocks = append(body.Blocks, blk)
	}

	if err := body.Validate(); err != nil {
		return nil, fmt.Errorf("body %s: %w", doc.Name, err)
	}

	return body, nil
}

func (b *builder) facts(doc *factsDocument) (*oracle.Facts, error) {
	res := &oracle.Facts{
		Invalidated: map[oracle.Point][]int{},
		LiveOrigins: map[oracle.Point][]mir.RegionVid{},
		Partial:     doc.Partial,
	}

	for i, v := range doc.Outlives {
		o, err := parseValue(b, v, (*parser).outlives)
		if err != nil {
			return nil, fmt.Errorf("outlives %d: %w", i, err)
		}
		res.Outlives = append(res.Outlives, o)
	}

	for i, v := range doc.Loans {
		l, err := parseValue(b, v, (*parser).loan)
		if err != nil {
			return nil, fmt.Errorf("loan %d: %w", i, err)
		}
		res.Loans = append(res.Loans, l)
	}

	for i, v := range doc.Invalidated {
		inv, err := parseValue(b, v, (*parser).invalidation)
		if err != nil {
			return nil, fmt.Errorf("invalidated %d: %w", i, err)
		}
		for _, id := range inv.loans {
			if !slices.ContainsFunc(res.Loans, func(l oracle.Loan) bool { return l.ID == id }) {
				return nil, fmt.Errorf("invalidated %d: unknown loan L%d", i, id)
			}
		}
		res.Invalidated[inv.point] = append(res.Invalidated[inv.point], inv.loans...)
	}

	for i, v := range doc.Live {
		l, err := parseValue(b, v, (*parser).liveness)
		if err != nil {
			return nil, fmt.Errorf("live %d: %w", i, err)
		}
		res.LiveOrigins[l.point] = append(res.LiveOrigins[l.point], l.regions...)
	}

	return res, nil
}

func (b *builder) expect(doc *expectDocument) (Expect, error) {
	res := Expect{Error: doc.Error}

	for _, key := range slices.Sorted(maps.Keys(doc.After)) {
		loc, err := parseValue(b, value{text: key}, (*parser).location)
		if err != nil {
			return Expect{}, fmt.Errorf("after location %q: %w", key, err)
		}
		caps, err := parseValue(b, doc.After[key], (*parser).capabilities)
		if err != nil {
			return Expect{}, fmt.Errorf("after %s: %w", key, err)
		}
		if res.After == nil {
			res.After = map[mir.Location]capability.PlaceCapabilities{}
		}
		res.After[loc] = caps
	}

	if doc.Return != nil {
		caps, err := parseValue(b, *doc.Return, (*parser).capabilities)
		if err != nil {
			return Expect{}, fmt.Errorf("return: %w", err)
		}
		res.Return = caps
	}

	for i, v := range doc.Unreached {
		blk, err := parseValue(b, v, (*parser).block)
		if err != nil {
			return Expect{}, fmt.Errorf("unreached %d: %w", i, err)
		}
		res.Unreached = append(res.Unreached, blk)
	}

	for i, v := range doc.Reports {
		r, err := parseValue(b, v, (*parser).rule)
		if err != nil {
			return Expect{}, fmt.Errorf("report %d: %w", i, err)
		}
		res.Reports = append(res.Reports, r)
	}

	return res, nil
}
