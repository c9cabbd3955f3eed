package coupling

import (
	"errors"

	"github.com/sirkon/pcg/internal/mir"
)

// ErrIncompleteOracle is returned when liveness facts are not fully computed.
var ErrIncompleteOracle = errors.New("region oracle output is incomplete")

// Node is a region projection as the constructor sees it.
type Node[N any] interface {
	comparable
	IsOld() bool
	RegionVid() mir.RegionVid
	Cmp(N) int
}

// LivenessChecker answers region liveness queries.
type LivenessChecker interface {
	// Complete reports whether the liveness facts are fully computed.
	Complete() bool

	// IsLive checks if the region is live at the entry of the block.
	IsLive(region mir.RegionVid, block mir.BlockID) bool
}

// Constructor builds the coupling graph of a block.
type Constructor[N Node[N]] struct {
	live  LivenessChecker
	block mir.BlockID
}

// NewConstructor creates a constructor of the block coupling graph.
func NewConstructor[N Node[N]](live LivenessChecker, block mir.BlockID) (*Constructor[N], error) {
	if !live.Complete() {
		return nil, ErrIncompleteOracle
	}

	return &Constructor[N]{
		live:  live,
		block: block,
	}, nil
}

type visit[N comparable] struct {
	bottom    N
	hasBottom bool
	candidate N
}

// Construct builds a coupling graph out of a region projection graph.
//
// Starting from every leaf, it walks nodes pointing to a candidate. A
// transparent node, either old or with a region dead at the block entry,
// is walked through keeping the same bottom. Any other node gets an edge to
// the bottom and becomes the bottom of its own walk. A walk from a
// transparent leaf has no bottom until it meets the first live node.
func (c *Constructor[N]) Construct(g *Graph[N]) *Graph[N] {
	res := NewGraph[N]()
	visited := map[visit[N]]struct{}{}

	for _, leaf := range g.LeafNodes(cmpNodes[N]) {
		start := visit[N]{candidate: leaf}
		if !c.transparent(leaf) {
			res.AddNode(leaf)
			start.bottom, start.hasBottom = leaf, true
		}
		stack := []visit[N]{start}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := visited[cur]; ok {
				continue
			}
			visited[cur] = struct{}{}

			nodes := g.NodesPointingTo(cur.candidate, cmpNodes[N])
			for i := len(nodes) - 1; i >= 0; i-- {
				n := nodes[i]
				if n == cur.candidate {
					continue
				}

				if c.transparent(n) {
					next := cur
					next.candidate = n
					stack = append(stack, next)
					continue
				}

				switch {
				case !cur.hasBottom:
					res.AddNode(n)
				case n != cur.bottom:
					res.AddEdge(n, cur.bottom)
				}
				stack = append(stack, visit[N]{bottom: n, hasBottom: true, candidate: n})
			}
		}
	}

	return res
}

func (c *Constructor[N]) transparent(n N) bool {
	return n.IsOld() || !c.live.IsLive(n.RegionVid(), c.block)
}

func cmpNodes[N Node[N]](a, b N) int {
	return a.Cmp(b)
}
