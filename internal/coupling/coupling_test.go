package coupling

import (
	"cmp"
	"errors"
	"reflect"
	"testing"

	"github.com/sirkon/deepequal"

	"github.com/sirkon/pcg/internal/mir"
)

type testNode struct {
	name   string
	old    bool
	region mir.RegionVid
}

func (n testNode) IsOld() bool              { return n.old }
func (n testNode) RegionVid() mir.RegionVid { return n.region }
func (n testNode) Cmp(o testNode) int       { return cmp.Compare(n.name, o.name) }

type testLiveness struct {
	complete bool
	live     map[mir.RegionVid]bool
}

func (l testLiveness) Complete() bool { return l.complete }

func (l testLiveness) IsLive(region mir.RegionVid, _ mir.BlockID) bool { return l.live[region] }

func TestNewConstructor_Incomplete(t *testing.T) {
	_, err := NewConstructor[testNode](testLiveness{}, 0)
	if !errors.Is(err, ErrIncompleteOracle) {
		t.Errorf("expected incomplete oracle error, got %v", err)
	}
}

func TestConstructor_Construct(t *testing.T) {
	a := testNode{name: "a", region: 1}
	b := testNode{name: "b", region: 2}
	c := testNode{name: "c", region: 3}
	oldA := testNode{name: "a-old", region: 1, old: true}
	d := testNode{name: "d", region: 4}

	tests := []struct {
		name  string
		edges [][2]testNode
		live  map[mir.RegionVid]bool
		want  []Edge[testNode]
		nodes []testNode
	}{
		{
			name:  "all live",
			edges: [][2]testNode{{a, b}, {b, c}},
			live:  map[mir.RegionVid]bool{1: true, 2: true, 3: true},
			want:  []Edge[testNode]{{From: a, To: b}, {From: b, To: c}},
			nodes: []testNode{a, b, c},
		},
		{
			name:  "dead middle",
			edges: [][2]testNode{{a, b}, {b, c}},
			live:  map[mir.RegionVid]bool{1: true, 3: true},
			want:  []Edge[testNode]{{From: a, To: c}},
			nodes: []testNode{a, c},
		},
		{
			name:  "old middle",
			edges: [][2]testNode{{a, oldA}, {oldA, c}},
			live:  map[mir.RegionVid]bool{1: true, 3: true},
			want:  []Edge[testNode]{{From: a, To: c}},
			nodes: []testNode{a, c},
		},
		{
			name:  "cycle through dead nodes",
			edges: [][2]testNode{{a, b}, {b, c}, {c, b}, {b, d}},
			live:  map[mir.RegionVid]bool{1: true, 4: true},
			want:  []Edge[testNode]{{From: a, To: d}},
			nodes: []testNode{a, d},
		},
		{
			name:  "self loop",
			edges: [][2]testNode{{a, a}, {a, d}},
			live:  map[mir.RegionVid]bool{1: true, 4: true},
			want:  []Edge[testNode]{{From: a, To: d}},
			nodes: []testNode{a, d},
		},
		{
			name:  "dead leaf",
			edges: [][2]testNode{{a, b}, {b, c}},
			live:  map[mir.RegionVid]bool{1: true, 2: true},
			want:  []Edge[testNode]{{From: a, To: b}},
			nodes: []testNode{a, b},
		},
		{
			name:  "old leaf",
			edges: [][2]testNode{{b, oldA}},
			live:  map[mir.RegionVid]bool{1: true, 2: true},
			nodes: []testNode{b},
		},
		{
			name:  "dead leaf under dead middle",
			edges: [][2]testNode{{a, b}, {d, b}, {b, c}},
			live:  map[mir.RegionVid]bool{1: true, 4: true},
			nodes: []testNode{a, d},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph[testNode]()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}

			c, err := NewConstructor[testNode](testLiveness{complete: true, live: tt.live}, 0)
			if err != nil {
				t.Fatal(err)
			}

			res := c.Construct(g)
			got := res.Edges(testNode.Cmp)
			if !reflect.DeepEqual(got, tt.want) {
				deepequal.SideBySide(t, "edges", tt.want, got)
			}
			if nodes := res.Nodes(testNode.Cmp); !reflect.DeepEqual(nodes, tt.nodes) {
				deepequal.SideBySide(t, "nodes", tt.nodes, nodes)
			}
		})
	}
}

func TestGraph_LeafNodes(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddNode("d")

	got := g.LeafNodes(cmp.Compare[string])
	want := []string{"b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		deepequal.SideBySide(t, "leaves", want, got)
	}
	if preds := g.NodesPointingTo("c", cmp.Compare[string]); !reflect.DeepEqual(preds, []string{"a"}) {
		t.Errorf("unexpected predecessors %v", preds)
	}
}
