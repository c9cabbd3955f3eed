package capability

import (
	"io"
	"log/slog"
	"maps"
	"reflect"
	"testing"

	"github.com/sirkon/deepequal"

	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/places"
	"github.com/sirkon/pcg/internal/validity"
)

// testRepacker works over:
//
//	_0: ()
//	_1: S { a: i32, b: (i32, &'1 mut i32) }
//	_2: E { None, Some(i32) }
//	_3: [i32; 4]
func testRepacker(check *validity.Checker) *places.Repacker {
	i32 := mir.Scalar("i32")
	body := &mir.Body{
		Name: "test",
		Locals: []mir.LocalDecl{
			{Ty: mir.Unit()},
			{Name: "x", Ty: mir.Struct("S", i32, mir.Tuple(i32, mir.Ref(1, mir.Mut, i32)))},
			{Name: "e", Ty: mir.Enum("E", mir.Variant{Name: "None"}, mir.Variant{Name: "Some", Fields: []*mir.Ty{i32}})},
			{Name: "arr", Ty: mir.Array(i32, 4)},
		},
		Blocks: []mir.Block{{Terminator: mir.Terminator{Kind: mir.TerminatorReturn}}},
	}

	return places.NewRepacker(body, check)
}

func summaryWith(proj Projections) *Summary {
	s := NewSummary(4)
	if proj != nil {
		for p := range proj {
			s.locals[p.Local()] = Projections{}
		}
		for p, k := range proj {
			s.locals[p.Local()][p] = k
		}
	}

	return s
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b    Kind
		want    int
		related bool
	}{
		{a: None, b: Read, want: -1, related: true},
		{a: None, b: Exclusive, want: -1, related: true},
		{a: Exclusive, b: Write, want: 1, related: true},
		{a: Read, b: Read, want: 0, related: true},
		{a: Read, b: Write},
		{a: Write, b: Read},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"-"+tt.b.String(), func(t *testing.T) {
			got, ok := Compare(tt.a, tt.b)
			if ok != tt.related {
				t.Fatalf("related: got %v, want %v", ok, tt.related)
			}
			if ok && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	if got := Meet(Read, Write); got != None {
		t.Errorf("meet of read and write must be none, got %s", got)
	}
	if got := Meet(Exclusive, Read); got != Read {
		t.Errorf("meet of exclusive and read must be read, got %s", got)
	}
}

func TestKind_UnmarshalText(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("write")); err != nil {
		t.Fatal(err)
	}
	if k != Write {
		t.Errorf("got %s, want write", k)
	}
	if err := k.UnmarshalText([]byte("owned")); err == nil {
		t.Error("error expected for unknown capability")
	}
}

func TestSummary_Join(t *testing.T) {
	x := mir.NewPlace(1)
	tests := []struct {
		name  string
		self  Projections
		other Projections
		want  PlaceCapabilities
	}{
		{
			name:  "finer exclusive and coarse read",
			self:  Projections{x.Field(0): Exclusive, x.Field(1): Exclusive},
			other: Projections{x: Read},
			want:  PlaceCapabilities{x: Read},
		},
		{
			name:  "coarse read and finer exclusive",
			self:  Projections{x: Read},
			other: Projections{x.Field(0): Exclusive, x.Field(1): Exclusive},
			want:  PlaceCapabilities{x: Read},
		},
		{
			name:  "coarse exclusive is split",
			self:  Projections{x: Exclusive},
			other: Projections{x.Field(0): Exclusive, x.Field(1): Read},
			want:  PlaceCapabilities{x.Field(0): Exclusive, x.Field(1): Read},
		},
		{
			name:  "finer places under coarse exclusive",
			self:  Projections{x.Field(0): Exclusive, x.Field(1): Read},
			other: Projections{x: Exclusive},
			want:  PlaceCapabilities{x.Field(0): Exclusive, x.Field(1): Read},
		},
		{
			name:  "read and write are dropped",
			self:  Projections{x: Read},
			other: Projections{x: Write},
			want:  PlaceCapabilities{},
		},
		{
			name:  "hole is kept",
			self:  Projections{x.Field(0): Read},
			other: Projections{x: Read},
			want:  PlaceCapabilities{x.Field(0): Read},
		},
		{
			name:  "exclusive hole is kept",
			self:  Projections{x: Exclusive},
			other: Projections{x.Field(0): Exclusive},
			want:  PlaceCapabilities{x.Field(0): Exclusive},
		},
		{
			name:  "empty partition is not bottom",
			self:  Projections{},
			other: Projections{x: Write},
			want:  PlaceCapabilities{},
		},
	}

	r := testRepacker(validity.NewChecker(validity.ModeFatal, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range [][2]Projections{{tt.self, tt.other}, {tt.other, tt.self}} {
				s := NewSummary(4)
				s.locals[1] = maps.Clone(order[0])
				o := NewSummary(4)
				o.locals[1] = maps.Clone(order[1])

				s.Join(r, o)
				got := s.Capabilities()
				if !reflect.DeepEqual(got, tt.want) {
					deepequal.SideBySide(t, "capabilities", tt.want, got)
				}
				if !s.IsAllocated(1) {
					t.Error("local allocated on both sides must stay allocated")
				}

				// Joining the result again must be a no-op.
				again := s.Clone()
				if again.Join(r, s) {
					t.Errorf("join is not idempotent on %s", s)
				}
			}
		})
	}
}

func TestSummary_JoinThreeWay(t *testing.T) {
	x := mir.NewPlace(1)
	tests := []struct {
		name  string
		sides [3]Projections
		want  PlaceCapabilities
	}{
		{
			name:  "borrowed moved and untouched",
			sides: [3]Projections{{x: Read}, {x: Write}, {x: Exclusive}},
			want:  PlaceCapabilities{},
		},
		{
			name: "split coarse and holed",
			sides: [3]Projections{
				{x.Field(0): Exclusive, x.Field(1): Exclusive},
				{x: Read},
				{x.Field(0): Read},
			},
			want: PlaceCapabilities{x.Field(0): Read},
		},
	}

	orders := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	r := testRepacker(validity.NewChecker(validity.ModeFatal, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range orders {
				s := NewSummary(4)
				s.locals[1] = maps.Clone(tt.sides[order[0]])
				for _, i := range order[1:] {
					o := NewSummary(4)
					o.locals[1] = maps.Clone(tt.sides[i])
					s.Join(r, o)
				}

				got := s.Capabilities()
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("order %v", order)
					deepequal.SideBySide(t, "capabilities", tt.want, got)
				}
			}
		})
	}
}

func TestSummary_JoinAllocation(t *testing.T) {
	r := testRepacker(nil)

	allocated := NewSummary(4)
	allocated.Allocate(1, Exclusive)
	unallocated := NewSummary(4)

	s := allocated.Clone()
	if !s.Join(r, unallocated) {
		t.Error("join with unallocated local must report a change")
	}
	if s.IsAllocated(1) {
		t.Error("local must become unallocated")
	}

	s = unallocated.Clone()
	if s.Join(r, allocated) {
		t.Error("unallocated local must stay as is")
	}
	if s.IsAllocated(1) {
		t.Error("local must stay unallocated")
	}
}

func TestSummary_Repack(t *testing.T) {
	r := testRepacker(validity.NewChecker(validity.ModeFatal, nil))
	x := mir.NewPlace(1)
	deep := x.Field(1).Field(1).Deref()

	s := NewSummary(4)
	s.Allocate(1, Exclusive)

	ops, ok := s.Repack(r, deep)
	if !ok {
		t.Fatal("repack must succeed")
	}
	wantOps := []Op{
		{Kind: OpExpand, Base: x, Target: x.Field(1), To: Exclusive},
		{Kind: OpExpand, Base: x.Field(1), Target: x.Field(1).Field(1), To: Exclusive},
		{Kind: OpExpand, Base: x.Field(1).Field(1), Target: deep, To: Exclusive},
	}
	if !reflect.DeepEqual(ops, wantOps) {
		deepequal.SideBySide(t, "ops", wantOps, ops)
	}
	want := PlaceCapabilities{
		x.Field(0):          Exclusive,
		x.Field(1).Field(0): Exclusive,
		deep:                Exclusive,
	}
	if got := s.Capabilities(); !reflect.DeepEqual(got, want) {
		deepequal.SideBySide(t, "expanded", want, got)
	}

	s.Set(deep, Read)
	ops, ok = s.Repack(r, x)
	if !ok {
		t.Fatal("collapse must succeed")
	}
	if len(ops) != 3 || ops[0].Kind != OpCollapse || ops[0].To != Read {
		t.Errorf("unexpected collapse ops %v", ops)
	}
	if got := s.Capabilities(); !reflect.DeepEqual(got, PlaceCapabilities{x: Read}) {
		deepequal.SideBySide(t, "collapsed", PlaceCapabilities{x: Read}, got)
	}
}

func TestSummary_RepackVariants(t *testing.T) {
	r := testRepacker(validity.NewChecker(validity.ModeFatal, nil))
	e := mir.NewPlace(2)

	s := summaryWith(Projections{e.Project(mir.DowncastElem(1), mir.FieldElem(0)): Exclusive})
	ops, ok := s.Repack(r, e.Project(mir.DowncastElem(0)))
	if !ok {
		t.Fatal("repack must succeed")
	}
	if len(ops) != 3 || ops[0].Kind != OpCollapse || ops[2].Kind != OpExpand {
		t.Errorf("unexpected ops %v", ops)
	}
	want := PlaceCapabilities{e.Project(mir.DowncastElem(0)): Exclusive}
	if got := s.Capabilities(); !reflect.DeepEqual(got, want) {
		deepequal.SideBySide(t, "capabilities", want, got)
	}
}

func TestSummary_RepackHole(t *testing.T) {
	r := testRepacker(validity.NewChecker(validity.ModeFatal, nil))
	x := mir.NewPlace(1)

	s := summaryWith(Projections{x.Field(0): Read})
	if _, ok := s.Repack(r, x); ok {
		t.Error("repack over a hole must fail")
	}
	if _, ok := s.Repack(r, x.Field(1)); ok {
		t.Error("repack of an untracked place must fail")
	}

	ops := s.Reset(x, Write)
	if len(ops) != 2 {
		t.Errorf("unexpected reset ops %v", ops)
	}
	if got := s.Capabilities(); !reflect.DeepEqual(got, PlaceCapabilities{x: Write}) {
		deepequal.SideBySide(t, "reset", PlaceCapabilities{x: Write}, got)
	}
}

func TestDiff(t *testing.T) {
	r := testRepacker(validity.NewChecker(validity.ModeFatal, nil))
	x := mir.NewPlace(1)

	from := NewSummary(4)
	from.Allocate(1, Exclusive)
	from.Allocate(3, Write)
	to := summaryWith(Projections{x.Field(0): Read, x.Field(1): Exclusive})
	to.Allocate(0, Write)

	got := Diff(r, from, to)
	want := []Op{
		{Kind: OpAllocate, Base: mir.NewPlace(0), To: Write},
		{Kind: OpExpand, Base: x, Target: x.Field(0), To: Exclusive},
		{Kind: OpWeaken, Base: x.Field(0), From: Exclusive, To: Read},
		{Kind: OpDeallocate, Base: mir.NewPlace(3)},
	}
	if !reflect.DeepEqual(got, want) {
		deepequal.SideBySide(t, "diff", want, got)
	}
}

func TestSummary_CheckFrontier(t *testing.T) {
	checker := validity.NewChecker(validity.ModeWarn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := testRepacker(checker)
	x := mir.NewPlace(1)

	s := summaryWith(Projections{x: Read, x.Field(0): Read})
	s.CheckFrontier(r, checker.Phase(validity.ReportCapability))

	reports := checker.Reporter().Reports()
	if len(reports) != 1 || reports[0].RuleCode != validity.PCG004FrontierOverlap {
		t.Errorf("expected a single frontier report, got %v", reports)
	}
}

func TestPlaceCapabilities_Join(t *testing.T) {
	x := mir.NewPlace(1)
	c := PlaceCapabilities{x.Field(0): Exclusive, x.Field(1): Read, mir.NewPlace(2): Exclusive}
	other := PlaceCapabilities{x.Field(0): Read, x.Field(1): Write}

	if !c.Join(other) {
		t.Error("join must report a change")
	}
	want := PlaceCapabilities{x.Field(0): Read}
	if !reflect.DeepEqual(c, want) {
		deepequal.SideBySide(t, "capabilities", want, c)
	}
}
