package borrows

import (
	"bytes"
	"maps"
	"reflect"
	"strings"
	"testing"

	"github.com/sirkon/deepequal"

	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/places"
	"github.com/sirkon/pcg/internal/validity"
)

// testRepacker works over:
//
//	_0: ()
//	_1: &'1 mut S
//	_2: S
//	_3: &'2 mut S
//
// where S is { a: i32, b: i32 }.
func testRepacker() *places.Repacker {
	i32 := mir.Scalar("i32")
	s := mir.Struct("S", i32, i32)
	body := &mir.Body{
		Name: "test",
		Locals: []mir.LocalDecl{
			{Ty: mir.Unit()},
			{Name: "x", Ty: mir.Ref(1, mir.Mut, s)},
			{Name: "t", Ty: s},
			{Name: "y", Ty: mir.Ref(2, mir.Mut, s)},
		},
		ArgCount: 1,
		Blocks:   []mir.Block{{Terminator: mir.Terminator{Kind: mir.TerminatorReturn}}},
	}

	return places.NewRepacker(body, validity.NewChecker(validity.ModeFatal, nil))
}

var (
	rx    = mir.NewPlace(1)
	owned = mir.NewPlace(2)
	ry    = mir.NewPlace(3)
)

func loc(block mir.BlockID, stmt int) mir.Location {
	return mir.Location{Block: block, Statement: stmt}
}

func TestArena_Interning(t *testing.T) {
	a := NewArena()
	n1 := a.Node(PlaceNode(Current(rx)))
	n2 := a.Node(PlaceNode(Current(owned)))
	if again := a.Node(PlaceNode(Current(rx))); again != n1 {
		t.Errorf("node interned twice: %d and %d", n1, again)
	}
	if _, ok := a.LookupNode(PlaceNode(OldAt(rx, loc(0, 1)))); ok {
		t.Error("an old snapshot must differ from the current place")
	}
	if got, ok := a.LookupNode(PlaceNode(Current(owned))); !ok || got != n2 {
		t.Errorf("interned node must be found as %d, got %d (%t)", n2, got, ok)
	}

	e1 := a.Edge(Edge{Kind: EdgeDerefExpansion, Blocked: []NodeID{n1}, BlockedBy: []NodeID{n2, n1}})
	e2 := a.Edge(Edge{Kind: EdgeDerefExpansion, Blocked: []NodeID{n1}, BlockedBy: []NodeID{n1, n2, n2}})
	if e1 != e2 {
		t.Errorf("equal edges interned as %d and %d", e1, e2)
	}
	if got := a.EdgeAt(e1).BlockedBy; !reflect.DeepEqual(got, []NodeID{n1, n2}) {
		t.Errorf("unexpected normalized nodes %v", got)
	}
}

func TestState_Join(t *testing.T) {
	arena := NewArena()
	common := NewState(arena)
	common.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 1), 2)

	left := common.Clone()
	leftOnly, _ := left.AddReborrow(PlaceNode(Current(owned.Field(0))), PlaceNode(Current(rx.Deref())), mir.Not, loc(1, 0), 1)
	left.SetLatest(owned, loc(1, 0))
	right := common.Clone()
	right.SetLatest(owned, loc(2, 0))

	left.AddPathCondition(BlockEdge{From: 1, To: 3})
	right.AddPathCondition(BlockEdge{From: 2, To: 3})

	lr := left.Clone()
	lr.Join(right, 3)
	rl := right.Clone()
	rl.Join(left, 3)
	if !lr.Equal(rl) {
		t.Errorf("join is not commutative:\n%s\n---\n%s", lr, rl)
	}

	again := lr.Clone()
	if again.Join(lr, 3) {
		t.Error("join is not idempotent")
	}

	lr.NormalizePathConditions(3, []mir.BlockID{1, 2})
	for _, id := range lr.Edges() {
		pc, _ := lr.Conditions(id)
		switch id {
		case leftOnly:
			want := PathConditions{{From: 1, To: 3}}
			if !reflect.DeepEqual(pc, want) {
				deepequal.SideBySide(t, "left only conditions", want, pc)
			}
		default:
			if !pc.IsUnconditional() {
				t.Errorf("edge common to both paths must be unconditional, got %s", pc)
			}
		}
	}

	if got := lr.GetLatest(owned.Field(1)); got != loc(3, 0) {
		t.Errorf("conflicting latest must move to the join block start, got %s", got)
	}
}

func TestState_JoinCommutes(t *testing.T) {
	type side func(s *State)
	tests := []struct {
		name        string
		left, right side
	}{
		{
			name: "edge on one side",
			left: func(s *State) {
				s.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(1, 0), 2)
			},
			right: func(s *State) {},
		},
		{
			name: "different edges",
			left: func(s *State) {
				s.AddReborrow(PlaceNode(Current(owned.Field(0))), PlaceNode(Current(rx.Deref())), mir.Not, loc(1, 0), 1)
			},
			right: func(s *State) {
				s.AddReborrow(PlaceNode(Current(owned.Field(1))), PlaceNode(Current(ry.Deref())), mir.Mut, loc(2, 0), 2)
			},
		},
		{
			name:  "write of a prefix and of a field",
			left:  func(s *State) { s.SetLatest(owned, loc(1, 0)) },
			right: func(s *State) { s.SetLatest(owned.Field(0), loc(2, 0)) },
		},
		{
			name: "old snapshot on one side",
			left: func(s *State) {
				s.SetLatest(ry, loc(1, 0))
				s.MakePlaceOld(ry)
			},
			right: func(s *State) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			common := NewState(NewArena())
			common.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 1), 2)

			left := common.Clone()
			tt.left(left)
			left.AddPathCondition(BlockEdge{From: 1, To: 3})
			right := common.Clone()
			tt.right(right)
			right.AddPathCondition(BlockEdge{From: 2, To: 3})

			lr := left.Clone()
			lr.Join(right, 3)
			rl := right.Clone()
			rl.Join(left, 3)
			if !lr.Equal(rl) {
				t.Errorf("join is not commutative:\n%s\n%s\n---\n%s\n%s", lr, lr.latest, rl, rl.latest)
			}

			again := lr.Clone()
			if again.Join(rl, 3) {
				t.Errorf("join is not idempotent:\n%s", again)
			}
		})
	}
}

func TestState_MakePlaceOldAndTrim(t *testing.T) {
	s := NewState(NewArena())
	rb, _ := s.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 1), 2)
	s.SetLatest(ry, loc(0, 1))

	if !s.MakePlaceOld(ry) {
		t.Fatal("place must become old")
	}
	if s.Has(rb) {
		t.Error("the edge over the current place must be replaced")
	}
	if !s.Contains(PlaceNode(OldAt(ry.Deref(), loc(0, 1)))) {
		t.Errorf("old snapshot expected in\n%s", s)
	}

	removed := s.TrimOldLeaves()
	if len(removed) != 1 || len(s.Edges()) != 0 {
		t.Errorf("the reborrow kept alive by an old leaf must be trimmed, removed %v, left\n%s", removed, s)
	}
}

func TestState_MakePlaceOldKeepsEndpoints(t *testing.T) {
	tests := []struct {
		name          string
		old           mir.Place
		wantBlocked   Node
		wantBlockedBy Node
	}{
		{
			name:          "lender",
			old:           rx,
			wantBlocked:   PlaceNode(OldAt(rx.Deref(), loc(0, 1))),
			wantBlockedBy: PlaceNode(Current(ry.Deref())),
		},
		{
			name:          "borrower",
			old:           ry,
			wantBlocked:   PlaceNode(Current(rx.Deref())),
			wantBlockedBy: PlaceNode(OldAt(ry.Deref(), loc(0, 2))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(NewArena())
			s.AddReborrow(PlaceNode(Current(rx.Deref())), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 2), 2)
			s.SetLatest(rx, loc(0, 1))
			s.SetLatest(ry, loc(0, 2))

			if !s.MakePlaceOld(tt.old) {
				t.Fatal("place must become old")
			}

			edges := s.Edges()
			if len(edges) != 1 {
				t.Fatalf("expected a single edge, got\n%s", s)
			}
			e := s.Arena().EdgeAt(edges[0])
			want := [][]Node{{tt.wantBlocked}, {tt.wantBlockedBy}}
			got := [][]Node{s.Arena().Nodes(e.Blocked), s.Arena().Nodes(e.BlockedBy)}
			if !reflect.DeepEqual(got, want) {
				deepequal.SideBySide(t, "endpoints", want, got)
			}
		})
	}
}

func TestState_EnsureExpansionToExactly(t *testing.T) {
	r := testRepacker()
	s := NewState(NewArena())

	added := s.EnsureExpansionToExactly(r, rx.Deref().Field(0), loc(0, 0))
	if len(added) != 2 {
		t.Fatalf("expected two expansions, got\n%s", s)
	}
	leaves := s.Arena().Nodes(s.Leaves())
	want := []Node{PlaceNode(Current(rx.Deref().Field(0))), PlaceNode(Current(rx.Deref().Field(1)))}
	if !reflect.DeepEqual(leaves, want) {
		deepequal.SideBySide(t, "leaves", want, leaves)
	}

	s.EnsureExpansionToExactly(r, rx.Deref(), loc(0, 1))
	leaves = s.Arena().Nodes(s.Leaves())
	want = []Node{PlaceNode(Current(rx.Deref()))}
	if !reflect.DeepEqual(leaves, want) {
		deepequal.SideBySide(t, "collapsed leaves", want, leaves)
	}

	if removed := s.Minimize(); len(removed) != 1 || len(s.Edges()) != 0 {
		t.Errorf("minimize must drop the unused expansion, left\n%s", s)
	}
}

func TestState_Unblock(t *testing.T) {
	s := NewState(NewArena())
	s.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 1), 2)
	s.AddReborrow(PlaceNode(Current(ry.Deref())), PlaceNode(Current(rx.Deref())), mir.Mut, loc(0, 2), 1)
	s.AddReborrow(PlaceNode(Current(rx.Deref())), PlaceNode(Current(owned)), mir.Not, loc(0, 3), 1)

	if got := s.ReborrowsBlocking(owned.Field(1)); len(got) != 1 {
		t.Errorf("expected a single reborrow blocking a field, got %v", got)
	}

	removed := s.Unblock(owned)
	if len(removed) != 3 || len(s.Edges()) != 0 {
		t.Errorf("expected all reborrows removed, got %v, left\n%s", removed, s)
	}
}

func TestState_KillLoan(t *testing.T) {
	s := NewState(NewArena())
	s.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 1), 2)
	kept, _ := s.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(rx.Deref())), mir.Not, loc(0, 2), 1)

	if removed := s.KillLoan(loc(0, 1), owned.Field(0)); len(removed) != 0 {
		t.Errorf("loan of another place must not be killed, got %v", removed)
	}
	if removed := s.KillLoan(loc(0, 1), owned); len(removed) != 1 {
		t.Errorf("expected the loan killed, got %v", removed)
	}
	if edges := s.Edges(); !reflect.DeepEqual(edges, []EdgeID{kept}) {
		t.Errorf("unexpected edges left\n%s", s)
	}
}

func TestState_ChangePCSElem(t *testing.T) {
	s := NewState(NewArena())
	s.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 1), 2)
	s.AddPathCondition(BlockEdge{From: 0, To: 1})

	if !s.ChangePCSElem(PlaceNode(Current(ry.Deref())), PlaceNode(Current(rx.Deref()))) {
		t.Fatal("a node must be replaced")
	}
	edges := s.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected a single edge, got\n%s", s)
	}
	e := s.Arena().EdgeAt(edges[0])
	if got := s.Arena().NodeAt(e.BlockedBy[0]); got != PlaceNode(Current(rx.Deref())) {
		t.Errorf("unexpected blocking node %s", got)
	}
	if pc, _ := s.Conditions(edges[0]); pc.IsUnconditional() {
		t.Error("path conditions must be kept")
	}
}

func TestState_RegionProjectionGraph(t *testing.T) {
	s := NewState(NewArena())
	in := RegionProjectionNode(OldAt(ry, loc(0, 2)), 0, 2)
	out := RegionProjectionNode(Current(rx), 0, 1)
	s.AddRegionAbstraction("identity", 0, loc(0, 2),
		[]Node{PlaceNode(OldAt(ry.Deref(), loc(0, 2))), in},
		[]Node{PlaceNode(Current(rx.Deref())), out},
	)
	member := RegionProjectionNode(Current(owned), 0, 3)
	s.AddRegionProjectionMember(Current(owned), member, PlaceIsRegionInput, loc(0, 3))

	g := s.RegionProjectionGraph()
	if !g.HasEdge(in, out) || g.Len() != 3 {
		t.Errorf("unexpected region projection graph %v", g.Edges(Node.Cmp))
	}
}

func TestPathConditions(t *testing.T) {
	var pc PathConditions
	pc = pc.With(BlockEdge{From: 2, To: 3}).With(BlockEdge{From: 1, To: 3}).With(BlockEdge{From: 1, To: 3})
	want := PathConditions{{From: 1, To: 3}, {From: 2, To: 3}}
	if !reflect.DeepEqual(pc, want) {
		deepequal.SideBySide(t, "conditions", want, pc)
	}

	if got := pc.Join(nil); !got.IsUnconditional() {
		t.Errorf("join with unconditional must be unconditional, got %s", got)
	}
	if got := pc.WithoutIncoming(3, []mir.BlockID{1, 2}); !got.IsUnconditional() {
		t.Errorf("conditions on every incoming edge must be dropped, got %s", got)
	}
	if got := pc.WithoutIncoming(3, []mir.BlockID{1, 2, 4}); !got.Equal(pc) {
		t.Errorf("conditions must stay while some incoming edge is missing, got %s", got)
	}
}

func TestLatest(t *testing.T) {
	l := Latest{}
	l.Set(owned.Field(0), loc(0, 1))
	if got := l.Get(owned.Field(0).Field(1)); got != loc(0, 1) {
		t.Errorf("longest prefix expected, got %s", got)
	}
	if got := l.Get(owned.Field(1)); got != mir.StartLocation {
		t.Errorf("start location expected, got %s", got)
	}

	l.Set(owned, loc(0, 2))
	if len(l) != 1 {
		t.Errorf("records below the written place must be dropped, got %s", l)
	}
}

func TestLatest_Join(t *testing.T) {
	tests := []struct {
		name  string
		left  Latest
		right Latest
		place mir.Place
		want  mir.Location
	}{
		{
			name:  "prefix against field",
			left:  Latest{owned: loc(1, 0)},
			right: Latest{owned.Field(0): loc(2, 0)},
			place: owned.Field(0),
			want:  loc(3, 0),
		},
		{
			name:  "prefix against field sibling",
			left:  Latest{owned: loc(1, 0)},
			right: Latest{owned.Field(0): loc(2, 0)},
			place: owned.Field(1),
			want:  loc(3, 0),
		},
		{
			name:  "written on one side only",
			left:  Latest{owned: loc(1, 0)},
			right: Latest{},
			place: owned,
			want:  loc(3, 0),
		},
		{
			name:  "same write through a prefix",
			left:  Latest{owned: loc(0, 1)},
			right: Latest{owned: loc(0, 1), owned.Field(0): loc(0, 1)},
			place: owned.Field(0),
			want:  loc(0, 1),
		},
		{
			name:  "untouched place",
			left:  Latest{owned: loc(1, 0)},
			right: Latest{owned: loc(2, 0)},
			place: rx,
			want:  mir.StartLocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := maps.Clone(tt.left)
			lr.Join(tt.right, 3)
			rl := maps.Clone(tt.right)
			rl.Join(tt.left, 3)

			for _, got := range []Latest{lr, rl} {
				if loc := got.Get(tt.place); loc != tt.want {
					t.Errorf("%s expected at %s, got %s in %s", tt.place, tt.want, loc, got)
				}
			}

			if lr.Join(rl, 3) {
				t.Errorf("join is not idempotent: %s", lr)
			}
		})
	}
}

func TestWriteDOT(t *testing.T) {
	s := NewState(NewArena())
	s.AddReborrow(PlaceNode(Current(owned)), PlaceNode(Current(ry.Deref())), mir.Mut, loc(0, 1), 2)

	var buf bytes.Buffer
	if err := s.WriteDOT(&buf, "bb0"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`digraph "bb0"`, `label="_3.*"`, `label="reborrow"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("%q missing in\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := WriteEdgeLegend(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "abstraction") {
		t.Errorf("legend misses abstraction edges:\n%s", buf.String())
	}
}
