package fixture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

// ErrSyntax is wrapped by every *SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError points to the offending part of a fixture value.
type SyntaxError struct {
	// Line and Column locate the YAML value, zero when unknown.
	Line   int
	Column int

	// Offset is the byte offset inside Source.
	Offset int
	Source string
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
	}

	return fmt.Sprintf("%d:%d: %q at offset %d: %s", e.Line, e.Column, e.Source, e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// bailout carries a syntax error out of the recursive descent.
type bailout struct {
	err *SyntaxError
}

type parser struct {
	toks  []token
	pos   int
	types map[string]*mir.Ty
	funcs map[string]*mir.FnSig
}

// parse runs f over the whole source. Named types and function signatures
// are shared with previously parsed values.
func parse[T any](src string, types map[string]*mir.Ty, funcs map[string]*mir.FnSig, f func(*parser) T) (res T, err error) {
	toks, err := lex(src)
	if err != nil {
		return res, err
	}

	p := &parser{
		toks:  toks,
		types: types,
		funcs: funcs,
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		var zero T
		res, err = zero, b.err
	}()

	res = f(p)
	if t := p.peek(); t.kind != tokenEOF {
		p.fail(t, "unexpected %s after the end", t)
	}

	return res, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}

	return t
}

func (p *parser) fail(t token, format string, a ...any) {
	panic(bailout{err: &SyntaxError{Offset: t.off, Msg: fmt.Sprintf(format, a...)}})
}

// is checks if the next token is the given punctuation or keyword.
func (p *parser) is(text string) bool {
	t := p.peek()
	return (t.kind == tokenPunct || t.kind == tokenIdent || t.kind == tokenArrow) && t.text == text
}

func (p *parser) accept(text string) bool {
	if !p.is(text) {
		return false
	}
	p.next()

	return true
}

func (p *parser) expect(text string) token {
	if !p.is(text) {
		p.fail(p.peek(), "%q expected, got %s", text, p.peek())
	}

	return p.next()
}

func (p *parser) expectKind(kind tokenKind) token {
	t := p.next()
	if t.kind != kind {
		p.fail(t, "%s expected, got %s", kind, t)
	}

	return t
}

func (p *parser) intLit() int {
	t := p.expectKind(tokenInt)
	v, err := strconv.Atoi(t.text)
	if err != nil {
		p.fail(t, "invalid integer: %s", err)
	}

	return v
}

// numbered parses an identifier made of a prefix and a number, like _3 or
// bb1.
func (p *parser) numbered(prefix, what string) int {
	t := p.expectKind(tokenIdent)
	v, err := strconv.Atoi(strings.TrimPrefix(t.text, prefix))
	if !strings.HasPrefix(t.text, prefix) || err != nil || v < 0 {
		p.fail(t, "%s expected, got %s", what, t)
	}

	return v
}

func (p *parser) local() mir.Local {
	return mir.Local(p.numbered("_", "local"))
}

func (p *parser) block() mir.BlockID {
	return mir.BlockID(p.numbered("bb", "block"))
}

func (p *parser) blocks() []mir.BlockID {
	res := []mir.BlockID{p.block()}
	for p.accept(",") {
		res = append(res, p.block())
	}

	return res
}

func (p *parser) region() mir.RegionVid {
	t := p.expectKind(tokenRegion)
	v, err := strconv.Atoi(t.text)
	if err != nil {
		p.fail(t, "invalid region: %s", err)
	}

	return mir.RegionVid(v)
}

func (p *parser) mutability() mir.Mutability {
	if p.accept("mut") {
		return mir.Mut
	}

	return mir.Not
}

func (p *parser) location() mir.Location {
	b := p.block()
	p.expect("[")
	s := p.intLit()
	p.expect("]")

	return mir.Location{Block: b, Statement: s}
}

func (p *parser) point() oracle.Point {
	t := p.expectKind(tokenIdent)
	p.expect("(")
	loc := p.location()
	p.expect(")")

	switch t.text {
	case "start":
		return oracle.StartOf(loc)
	case "mid":
		return oracle.MidOf(loc)
	default:
		p.fail(t, "start or mid expected, got %s", t)
		return oracle.Point{}
	}
}

func (p *parser) ty() *mir.Ty {
	t := p.peek()
	switch {
	case p.accept("("):
		var (
			fields []*mir.Ty
			comma  bool
		)
		for !p.accept(")") {
			fields = append(fields, p.ty())
			if p.accept(",") {
				comma = true
				continue
			}
			p.expect(")")
			break
		}
		if len(fields) == 1 && !comma {
			return fields[0]
		}
		return mir.Tuple(fields...)

	case p.accept("&"):
		region := p.region()
		mut := p.mutability()
		return mir.Ref(region, mut, p.ty())

	case p.accept("*"):
		var mut mir.Mutability
		switch {
		case p.accept("mut"):
			mut = mir.Mut
		case p.accept("const"):
			mut = mir.Not
		default:
			p.fail(p.peek(), "const or mut expected, got %s", p.peek())
		}
		return mir.RawPtr(mut, p.ty())

	case p.accept("["):
		elem := p.ty()
		if p.accept(";") {
			n := p.intLit()
			p.expect("]")
			return mir.Array(elem, n)
		}
		p.expect("]")
		return mir.Slice(elem)

	case p.accept("struct"):
		name := p.expectKind(tokenIdent).text
		p.expect("{")
		res := mir.Struct(name, p.tys("}")...)
		p.types[name] = res
		return res

	case p.accept("enum"):
		name := p.expectKind(tokenIdent).text
		p.expect("{")
		var variants []mir.Variant
		for !p.accept("}") {
			v := mir.Variant{Name: p.expectKind(tokenIdent).text}
			if p.accept("(") {
				v.Fields = p.tys(")")
			}
			variants = append(variants, v)
			if !p.accept(",") {
				p.expect("}")
				break
			}
		}
		res := mir.Enum(name, variants...)
		p.types[name] = res
		return res

	case p.accept("Box"):
		p.expect("<")
		elem := p.ty()
		p.expect(">")
		return mir.Box(elem)

	case t.kind == tokenIdent:
		p.next()
		if named, ok := p.types[t.text]; ok {
			return named
		}
		return mir.Scalar(t.text)

	default:
		p.fail(t, "type expected, got %s", t)
		return nil
	}
}

// tys parses a comma separated list of types up to the closing token.
func (p *parser) tys(closing string) []*mir.Ty {
	var res []*mir.Ty
	for !p.accept(closing) {
		res = append(res, p.ty())
		if !p.accept(",") {
			p.expect(closing)
			break
		}
	}

	return res
}

func (p *parser) place() mir.Place {
	res := mir.NewPlace(p.local())
	for {
		switch {
		case p.accept("."):
			if p.accept("*") {
				res = res.Deref()
			} else {
				res = res.Field(p.intLit())
			}

		case p.accept("@"):
			res = res.Project(mir.DowncastElem(p.intLit()))

		case p.accept("["):
			res = res.Project(p.indexElem())

		default:
			return res
		}
	}
}

// indexElem parses what follows an opening bracket up to and including the
// closing one.
func (p *parser) indexElem() mir.Elem {
	var res mir.Elem
	switch {
	case p.peek().kind == tokenIdent:
		res = mir.IndexElem(p.local())

	case p.accept("-"):
		off := p.intLit()
		p.expect("of")
		res = mir.ConstantIndexElem(off, p.intLit(), true)

	default:
		from := p.intLit()
		if p.accept("of") {
			res = mir.ConstantIndexElem(from, p.intLit(), false)
			break
		}
		p.expect(".")
		p.expect(".")
		fromEnd := p.accept("-")
		res = mir.SubsliceElem(from, p.intLit(), fromEnd)
	}
	p.expect("]")

	return res
}

func (p *parser) operand() mir.Operand {
	t := p.peek()
	switch {
	case p.accept("copy"):
		return mir.CopyOf(p.place())
	case p.accept("move"):
		return mir.MoveOf(p.place())
	case p.accept("const"):
		return mir.ConstOf(p.constant())
	default:
		p.fail(t, "operand expected, got %s", t)
		return mir.Operand{}
	}
}

func (p *parser) constant() string {
	neg := p.accept("-")
	t := p.next()
	switch {
	case t.kind == tokenInt && neg:
		return "-" + t.text
	case neg:
		p.fail(t, "integer expected, got %s", t)
	case t.kind == tokenInt || t.kind == tokenIdent:
		return t.text
	case t.kind == tokenString:
		return strconv.Quote(t.text)
	default:
		p.fail(t, "constant expected, got %s", t)
	}

	return ""
}

// operands parses a comma separated list of operands up to the closing
// token.
func (p *parser) operands(closing string) []mir.Operand {
	var res []mir.Operand
	for !p.accept(closing) {
		res = append(res, p.operand())
		if !p.accept(",") {
			p.expect(closing)
			break
		}
	}

	return res
}

var placeRvalues = map[string]mir.RvalueKind{
	"len":          mir.RvalueLen,
	"discriminant": mir.RvalueDiscriminant,
	"deref_copy":   mir.RvalueCopyForDeref,
}

var operandRvalues = map[string]mir.RvalueKind{
	"cast":             mir.RvalueCast,
	"repeat":           mir.RvalueRepeat,
	"shallow_init_box": mir.RvalueShallowInitBox,
}

func (p *parser) rvalue() mir.Rvalue {
	t := p.peek()
	switch {
	case p.accept("&"):
		if p.accept("raw") {
			var mut mir.Mutability
			if !p.accept("const") {
				p.expect("mut")
				mut = mir.Mut
			}
			return mir.Rvalue{Kind: mir.RvalueRawPtr, Mut: mut, Place: p.place()}
		}
		region := p.region()
		mut := p.mutability()
		return mir.Borrow(region, mut, p.place())

	case p.accept("("):
		return mir.Rvalue{Kind: mir.RvalueAggregate, Aggregate: mir.AggregateTuple, Operands: p.operands(")")}

	case p.accept("["):
		return mir.Rvalue{Kind: mir.RvalueAggregate, Aggregate: mir.AggregateArray, Operands: p.operands("]")}

	case p.is("copy"), p.is("move"), p.is("const"):
		return mir.Use(p.operand())

	case t.kind != tokenIdent:
		p.fail(t, "rvalue expected, got %s", t)
	}

	p.next()
	if kind, ok := placeRvalues[t.text]; ok {
		p.expect("(")
		place := p.place()
		p.expect(")")
		return mir.Rvalue{Kind: kind, Place: place}
	}

	res := mir.Rvalue{Kind: mir.RvalueAggregate}
	switch {
	case t.text == "closure":
		res.Aggregate = mir.AggregateClosure
	case t.text == "adt":
		p.expect("@")
		res.Aggregate = mir.AggregateAdt
		res.Variant = p.intLit()
	default:
		if kind, ok := operandRvalues[t.text]; ok {
			res.Kind = kind
		} else {
			res.Op = t.text
		}
	}
	p.expect("(")
	res.Operands = p.operands(")")

	if res.Op == "" {
		return res
	}
	switch len(res.Operands) {
	case 1:
		res.Kind = mir.RvalueUnaryOp
	case 2:
		res.Kind = mir.RvalueBinaryOp
	default:
		p.fail(t, "operator %s takes one or two operands, got %d", t.text, len(res.Operands))
	}

	return res
}

func (p *parser) statement() mir.Statement {
	switch {
	case p.accept("StorageLive"):
		p.expect("(")
		l := p.local()
		p.expect(")")
		return mir.StorageLive(l)

	case p.accept("StorageDead"):
		p.expect("(")
		l := p.local()
		p.expect(")")
		return mir.StorageDead(l)

	case p.accept("FakeRead"):
		p.expect("(")
		place := p.place()
		p.expect(")")
		return mir.FakeRead(place)

	case p.accept("nop"):
		return mir.Statement{Kind: mir.StatementNop}
	}

	target := p.place()
	p.expect("=")

	return mir.Assign(target, p.rvalue())
}

func (p *parser) terminator() mir.Terminator {
	switch {
	case p.accept("goto"):
		return mir.Terminator{Kind: mir.TerminatorGoto, Targets: []mir.BlockID{p.block()}}

	case p.accept("switch"):
		op := p.operand()
		p.expect("->")
		return mir.Terminator{Kind: mir.TerminatorSwitchInt, Operand: op, Targets: p.blocks()}

	case p.accept("return"):
		return mir.Terminator{Kind: mir.TerminatorReturn}

	case p.accept("unreachable"):
		return mir.Terminator{Kind: mir.TerminatorUnreachable}

	case p.accept("drop"):
		place := p.place()
		p.expect("->")
		return mir.Terminator{Kind: mir.TerminatorDrop, Place: place, Targets: p.blocks()}

	case p.accept("assert"):
		op := p.operand()
		p.expect("->")
		return mir.Terminator{Kind: mir.TerminatorAssert, Operand: op, Targets: p.blocks()}

	case p.accept("yield"):
		p.expect("->")
		return mir.Terminator{Kind: mir.TerminatorYield, Targets: p.blocks()}
	}

	call := &mir.Call{Destination: p.place()}
	p.expect("=")
	call.Func = p.path()
	call.Sig = p.funcs[call.Func]
	p.expect("(")
	call.Args = p.operands(")")
	if p.accept("->") {
		target := p.block()
		call.Target = &target
	}

	return mir.Terminator{Kind: mir.TerminatorCall, Call: call}
}

// path parses a function name, possibly qualified with ::.
func (p *parser) path() string {
	parts := []string{p.expectKind(tokenIdent).text}
	for p.accept(":") {
		p.expect(":")
		parts = append(parts, p.expectKind(tokenIdent).text)
	}

	return strings.Join(parts, "::")
}

func (p *parser) outlives() mir.Outlives {
	sup := p.region()
	p.expect(":")

	return mir.Outlives{Sup: sup, Sub: p.region()}
}

func (p *parser) signature() *mir.FnSig {
	p.expect("fn")
	p.expect("(")
	sig := &mir.FnSig{Inputs: p.tys(")")}
	if p.accept("->") {
		sig.Output = p.ty()
	} else {
		sig.Output = mir.Unit()
	}
	if p.accept("where") {
		sig.Bounds = append(sig.Bounds, p.outlives())
		for p.accept(",") {
			sig.Bounds = append(sig.Bounds, p.outlives())
		}
	}

	return sig
}

// localDecl parses `name: type`. Names of the _N form are not kept.
func (p *parser) localDecl() mir.LocalDecl {
	name := p.expectKind(tokenIdent).text
	p.expect(":")
	res := mir.LocalDecl{Ty: p.ty()}
	if _, err := strconv.Atoi(strings.TrimPrefix(name, "_")); err != nil || !strings.HasPrefix(name, "_") {
		res.Name = name
	}

	return res
}

func (p *parser) loanID() int {
	return p.numbered("L", "loan")
}

// loan parses `LN: &'R [mut] place at bbB[S]`.
func (p *parser) loan() oracle.Loan {
	res := oracle.Loan{ID: p.loanID()}
	p.expect(":")
	p.expect("&")
	res.Region = p.region()
	res.Mut = p.mutability()
	res.Place = p.place()
	p.expect("at")
	res.Reserve = p.location()

	return res
}

type invalidation struct {
	point oracle.Point
	loans []int
}

// invalidation parses `point: LN, LM`.
func (p *parser) invalidation() invalidation {
	res := invalidation{point: p.point()}
	p.expect(":")
	res.loans = append(res.loans, p.loanID())
	for p.accept(",") {
		res.loans = append(res.loans, p.loanID())
	}

	return res
}

type liveness struct {
	point   oracle.Point
	regions []mir.RegionVid
}

// liveness parses `point: 'A, 'B`. The region list may be empty.
func (p *parser) liveness() liveness {
	res := liveness{point: p.point()}
	p.expect(":")
	if p.peek().kind == tokenEOF {
		return res
	}
	res.regions = append(res.regions, p.region())
	for p.accept(",") {
		res.regions = append(res.regions, p.region())
	}

	return res
}

var shortKinds = map[string]capability.Kind{
	"N": capability.None,
	"R": capability.Read,
	"W": capability.Write,
	"E": capability.Exclusive,
}

// capabilities parses `place: K, place: K` where K is one of N, R, W or E.
// Surrounding braces are optional.
func (p *parser) capabilities() capability.PlaceCapabilities {
	res := capability.PlaceCapabilities{}
	braced := p.accept("{")
	for p.peek().kind == tokenIdent {
		place := p.place()
		p.expect(":")
		t := p.expectKind(tokenIdent)
		k, ok := shortKinds[t.text]
		if !ok {
			p.fail(t, "capability N, R, W or E expected, got %s", t)
		}
		res[place] = k
		if !p.accept(",") {
			break
		}
	}
	if braced {
		p.expect("}")
	}

	return res
}

func (p *parser) rule() validity.Rule {
	t := p.expectKind(tokenIdent)
	for r := validity.PCG001ExpandNotPrefix; r <= validity.PCG011DanglingEdge; r++ {
		if strings.HasPrefix(r.String(), t.text+":") {
			return r
		}
	}
	p.fail(t, "unknown rule %s", t)

	return 0
}
