package mir

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sirkon/deepequal"
)

func gotoBlock(stmts []Statement, to BlockID) Block {
	return Block{Statements: stmts, Terminator: Terminator{Kind: TerminatorGoto, Targets: []BlockID{to}}}
}

// loopBody is a counting loop with an unreachable block jumping into its
// header:
//
//	bb0 -> bb1 -> bb2 -> bb1
//	       bb1 -> bb3 (return)
//	bb4 -> bb1
func loopBody() *Body {
	i, c := NewPlace(1), NewPlace(2)

	return &Body{
		Name:   "counter",
		Locals: []LocalDecl{{Ty: Unit()}, {Name: "i", Ty: Scalar("i32")}, {Name: "c", Ty: Scalar("bool")}},
		Blocks: []Block{
			gotoBlock([]Statement{Assign(i, Use(ConstOf("0")))}, 1),
			{
				Statements: []Statement{Assign(c, Rvalue{
					Kind:     RvalueBinaryOp,
					Op:       "Lt",
					Operands: []Operand{CopyOf(i), ConstOf("10")},
				})},
				Terminator: Terminator{Kind: TerminatorSwitchInt, Operand: MoveOf(c), Targets: []BlockID{2, 3}},
			},
			gotoBlock(nil, 1),
			{Terminator: Terminator{Kind: TerminatorReturn}},
			gotoBlock(nil, 1),
		},
	}
}

func TestBody_Loops(t *testing.T) {
	b := loopBody()
	dom := b.Dominators()

	if got, want := b.Reachable().AppendTo(nil), []int{0, 1, 2, 3}; !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "reachable", want, got)
	}

	tests := []struct {
		name     string
		from, to BlockID
		want     bool
	}{
		{name: "latch", from: 2, to: 1, want: true},
		{name: "entry", from: 0, to: 1},
		{name: "exit", from: 1, to: 3},
		{name: "unreachable", from: 4, to: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.IsBackEdge(dom, tt.from, tt.to); got != tt.want {
				t.Errorf("%s -> %s: want %v, got %v", tt.from, tt.to, tt.want, got)
			}
		})
	}

	if !dom.Dominates(1, 3) || dom.Dominates(2, 3) {
		t.Error("bb1 must dominate bb3, bb2 must not")
	}

	if got, want := b.LoopHeads(), []BlockID{1}; !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "heads", want, got)
	}
	loop := b.LoopBlocks(1, 2)
	if got, want := loop.AppendTo(nil), []int{1, 2}; !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "loop", want, got)
	}
	if got, want := b.LoopExitBlocks(loop), []BlockID{3}; !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "exits", want, got)
	}
}

func TestBody_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mangle func(b *Body)
		ok     bool
	}{
		{
			name:   "valid",
			mangle: func(b *Body) {},
			ok:     true,
		},
		{
			name:   "no blocks",
			mangle: func(b *Body) { b.Blocks = nil },
		},
		{
			name:   "too many arguments",
			mangle: func(b *Body) { b.ArgCount = 3 },
		},
		{
			name:   "untyped local",
			mangle: func(b *Body) { b.Locals[2].Ty = nil },
		},
		{
			name:   "unknown local",
			mangle: func(b *Body) { b.Blocks[2].Statements = []Statement{StorageDead(7)} },
		},
		{
			name:   "unknown target",
			mangle: func(b *Body) { b.Blocks[2].Terminator.Targets = []BlockID{9} },
		},
		{
			name: "unknown index local",
			mangle: func(b *Body) {
				b.Blocks[3].Statements = []Statement{FakeRead(NewPlace(1, IndexElem(5)))}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := loopBody()
			tt.mangle(b)

			err := b.Validate()
			switch {
			case tt.ok && err != nil:
				t.Errorf("unexpected error %v", err)
			case !tt.ok && !errors.Is(err, ErrMalformedBody):
				t.Errorf("ErrMalformedBody expected, got %v", err)
			}
		})
	}
}
