package fixture

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sirkon/deepequal"

	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

const identityCall = `
name: identity_call
types:
  - struct S{i32, i32}
functions:
  identity: fn(&'3 mut S) -> &'3 mut S
locals:
  - "_0: ()"
  - "t: S"
  - "y: &'1 mut S"
  - "z: &'2 mut S"
blocks:
  - statements:
      - StorageLive(_1)
      - _1 = adt@0(const 1, const 2)
      - StorageLive(_2)
      - _2 = &'1 mut _1
      - StorageLive(_3)
    terminator: _3 = identity(move _2) -> bb1
  - statements:
      - _3.*.0 = const 5
      - StorageDead(_3)
    terminator: return
facts:
  outlives: ["'1: '2"]
  loans: ["L0: &'1 mut _1 at bb0[3]"]
  invalidated: ["start(bb1[1]): L0"]
  live: ["start(bb1[0]): '2", "mid(bb1[0]):"]
expect:
  after:
    bb1[0]: "_0: W, _3.*.0: E"
  return: "{_0: W, _1: E}"
  reports: [PCG005]
  error: unsupported
`

func TestParse(t *testing.T) {
	got, err := Parse([]byte(identityCall))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	i32 := mir.Scalar("i32")
	s := mir.Struct("S", i32, i32)
	bb1 := mir.BlockID(1)
	place := func(l mir.Local, elems ...mir.Elem) mir.Place { return mir.NewPlace(l, elems...) }

	wantBody := &mir.Body{
		Name: "identity_call",
		Locals: []mir.LocalDecl{
			{Ty: mir.Unit()},
			{Name: "t", Ty: s},
			{Name: "y", Ty: mir.Ref(1, mir.Mut, s)},
			{Name: "z", Ty: mir.Ref(2, mir.Mut, s)},
		},
		Blocks: []mir.Block{
			{
				Statements: []mir.Statement{
					mir.StorageLive(1),
					mir.Assign(place(1), mir.Rvalue{
						Kind:      mir.RvalueAggregate,
						Aggregate: mir.AggregateAdt,
						Operands:  []mir.Operand{mir.ConstOf("1"), mir.ConstOf("2")},
					}),
					mir.StorageLive(2),
					mir.Assign(place(2), mir.Borrow(1, mir.Mut, place(1))),
					mir.StorageLive(3),
				},
				Terminator: mir.Terminator{
					Kind: mir.TerminatorCall,
					Call: &mir.Call{
						Func: "identity",
						Sig: &mir.FnSig{
							Inputs: []*mir.Ty{mir.Ref(3, mir.Mut, s)},
							Output: mir.Ref(3, mir.Mut, s),
						},
						Args:        []mir.Operand{mir.MoveOf(place(2))},
						Destination: place(3),
						Target:      &bb1,
					},
				},
			},
			{
				Statements: []mir.Statement{
					mir.Assign(place(3, mir.DerefElem(), mir.FieldElem(0)), mir.Use(mir.ConstOf("5"))),
					mir.StorageDead(3),
				},
				Terminator: mir.Terminator{Kind: mir.TerminatorReturn},
			},
		},
	}
	if !reflect.DeepEqual(wantBody, got.Body) {
		deepequal.SideBySide(t, "body", wantBody, got.Body)
	}

	wantFacts := &oracle.Facts{
		Outlives: []mir.Outlives{{Sup: 1, Sub: 2}},
		Loans: []oracle.Loan{{
			ID:      0,
			Reserve: mir.Location{Block: 0, Statement: 3},
			Place:   place(1),
			Mut:     mir.Mut,
			Region:  1,
		}},
		Invalidated: map[oracle.Point][]int{
			oracle.StartOf(mir.Location{Block: 1, Statement: 1}): {0},
		},
		LiveOrigins: map[oracle.Point][]mir.RegionVid{
			oracle.StartOf(mir.Location{Block: 1}): {2},
			oracle.MidOf(mir.Location{Block: 1}):   nil,
		},
	}
	if !reflect.DeepEqual(wantFacts, got.Facts) {
		deepequal.SideBySide(t, "facts", wantFacts, got.Facts)
	}

	wantExpect := Expect{
		After: map[mir.Location]capability.PlaceCapabilities{
			{Block: 1}: {
				place(0):                                   capability.Write,
				place(3, mir.DerefElem(), mir.FieldElem(0)): capability.Exclusive,
			},
		},
		Return: capability.PlaceCapabilities{
			place(0): capability.Write,
			place(1): capability.Exclusive,
		},
		Reports: []validity.Rule{validity.PCG005MissingCapability},
		Error:   "unsupported",
	}
	if !reflect.DeepEqual(wantExpect, got.Expect) {
		deepequal.SideBySide(t, "expect", wantExpect, got.Expect)
	}
}

func TestParser(t *testing.T) {
	i32 := mir.Scalar("i32")
	boolTy := mir.Scalar("bool")
	place := func(l mir.Local, elems ...mir.Elem) mir.Place { return mir.NewPlace(l, elems...) }
	ty := func(p *parser) any { return p.ty() }
	pl := func(p *parser) any { return p.place() }
	rv := func(p *parser) any { return p.rvalue() }
	term := func(p *parser) any { return p.terminator() }

	tests := []struct {
		name string
		src  string
		f    func(*parser) any
		want any
	}{
		{
			name: "array of refs to tuples",
			src:  "[&'1 mut (i32, bool); 3]",
			f:    ty,
			want: mir.Array(mir.Ref(1, mir.Mut, mir.Tuple(i32, boolTy)), 3),
		},
		{
			name: "single element tuple",
			src:  "(i32,)",
			f:    ty,
			want: mir.Tuple(i32),
		},
		{
			name: "parenthesized",
			src:  "(i32)",
			f:    ty,
			want: i32,
		},
		{
			name: "raw pointer to box",
			src:  "*const Box<[u8]>",
			f:    ty,
			want: mir.RawPtr(mir.Not, mir.Box(mir.Slice(mir.Scalar("u8")))),
		},
		{
			name: "enum",
			src:  "enum Opt{None, Some(i32)}",
			f:    ty,
			want: mir.Enum("Opt", mir.Variant{Name: "None"}, mir.Variant{Name: "Some", Fields: []*mir.Ty{i32}}),
		},
		{
			name: "projections",
			src:  "_1.*.0[_2][-1 of 4][1..-2][3 of 5][0..2]@1",
			f:    pl,
			want: place(1,
				mir.DerefElem(),
				mir.FieldElem(0),
				mir.IndexElem(2),
				mir.ConstantIndexElem(1, 4, true),
				mir.SubsliceElem(1, 2, true),
				mir.ConstantIndexElem(3, 5, false),
				mir.SubsliceElem(0, 2, false),
				mir.DowncastElem(1),
			),
		},
		{
			name: "raw borrow",
			src:  "&raw mut _1.0",
			f:    rv,
			want: mir.Rvalue{Kind: mir.RvalueRawPtr, Mut: mir.Mut, Place: place(1, mir.FieldElem(0))},
		},
		{
			name: "shared borrow",
			src:  "&'4 _2.*",
			f:    rv,
			want: mir.Borrow(4, mir.Not, place(2, mir.DerefElem())),
		},
		{
			name: "binary operation",
			src:  "Add(copy _1, const -3)",
			f:    rv,
			want: mir.Rvalue{
				Kind:     mir.RvalueBinaryOp,
				Op:       "Add",
				Operands: []mir.Operand{mir.CopyOf(place(1)), mir.ConstOf("-3")},
			},
		},
		{
			name: "unary operation",
			src:  "Neg(move _2)",
			f:    rv,
			want: mir.Rvalue{Kind: mir.RvalueUnaryOp, Op: "Neg", Operands: []mir.Operand{mir.MoveOf(place(2))}},
		},
		{
			name: "len",
			src:  "len(_1)",
			f:    rv,
			want: mir.Rvalue{Kind: mir.RvalueLen, Place: place(1)},
		},
		{
			name: "cast",
			src:  "cast(copy _1)",
			f:    rv,
			want: mir.Rvalue{Kind: mir.RvalueCast, Operands: []mir.Operand{mir.CopyOf(place(1))}},
		},
		{
			name: "tuple of constants",
			src:  `(const "s", const true)`,
			f:    rv,
			want: mir.Rvalue{
				Kind:      mir.RvalueAggregate,
				Aggregate: mir.AggregateTuple,
				Operands:  []mir.Operand{mir.ConstOf(`"s"`), mir.ConstOf("true")},
			},
		},
		{
			name: "closure",
			src:  "closure(copy _1)",
			f:    rv,
			want: mir.Rvalue{
				Kind:      mir.RvalueAggregate,
				Aggregate: mir.AggregateClosure,
				Operands:  []mir.Operand{mir.CopyOf(place(1))},
			},
		},
		{
			name: "switch",
			src:  "switch copy _1 -> bb1, bb2",
			f:    term,
			want: mir.Terminator{
				Kind:    mir.TerminatorSwitchInt,
				Operand: mir.CopyOf(place(1)),
				Targets: []mir.BlockID{1, 2},
			},
		},
		{
			name: "diverging call",
			src:  "_0 = std::process::exit(const 1)",
			f:    term,
			want: mir.Terminator{
				Kind: mir.TerminatorCall,
				Call: &mir.Call{
					Func:        "std::process::exit",
					Args:        []mir.Operand{mir.ConstOf("1")},
					Destination: place(0),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse(tt.src, map[string]*mir.Ty{}, map[string]*mir.FnSig{}, tt.f)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.src, err)
			}

			if !reflect.DeepEqual(tt.want, got) {
				deepequal.SideBySide(t, "parsed", tt.want, got)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		syntax *SyntaxError
	}{
		{
			name: "bad block",
			data: "name: broken\nlocals:\n  - \"_0: ()\"\nblocks:\n  - terminator: goto 1\n",
			syntax: &SyntaxError{
				Line:   5,
				Column: 17,
				Offset: 5,
				Source: "goto 1",
				Msg:    `identifier expected, got "1"`,
			},
		},
		{
			name: "unclosed tuple",
			data: "name: broken\nlocals:\n  - \"_0: (i32\"\n",
			syntax: &SyntaxError{
				Line:   3,
				Column: 5,
				Offset: 8,
				Source: "_0: (i32",
				Msg:    `")" expected, got end of input`,
			},
		},
		{
			name: "unknown loan",
			data: "locals: [\"_0: ()\"]\nblocks:\n  - terminator: return\nfacts:\n  invalidated: [\"mid(bb0[0]): L3\"]\n",
		},
		{
			name: "unknown field",
			data: "name: x\nbody: []\n",
		},
		{
			name: "empty",
			data: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("error expected")
			}

			var serr *SyntaxError
			switch {
			case tt.syntax == nil && errors.As(err, &serr):
				t.Errorf("unexpected syntax error %v", err)
			case tt.syntax == nil:
			case !errors.Is(err, ErrSyntax) || !errors.As(err, &serr):
				t.Errorf("syntax error expected, got %v", err)
			case !reflect.DeepEqual(tt.syntax, serr):
				deepequal.SideBySide(t, "syntax error", tt.syntax, serr)
			}
		})
	}
}
