package oracle

import (
	"golang.org/x/tools/container/intsets"

	"github.com/sirkon/pcg/internal/mir"
)

// RegionGraph answers outlives queries over a set of constraints.
type RegionGraph struct {
	succs map[mir.RegionVid][]mir.RegionVid
}

// NewRegionGraph builds the graph of `Sup: Sub` constraints.
func NewRegionGraph(constraints ...[]mir.Outlives) *RegionGraph {
	g := &RegionGraph{
		succs: map[mir.RegionVid][]mir.RegionVid{},
	}
	for _, cs := range constraints {
		for _, c := range cs {
			g.succs[c.Sup] = append(g.succs[c.Sup], c.Sub)
		}
	}

	return g
}

// Outlives checks if sup outlives sub: sub is reachable from sup over the
// constraints. Every region outlives itself, regions on a cycle outlive each
// other.
func (g *RegionGraph) Outlives(sup, sub mir.RegionVid) bool {
	if sup == sub {
		return true
	}

	var visited intsets.Sparse
	stack := []mir.RegionVid{sup}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Insert(int(cur)) {
			continue
		}

		for _, next := range g.succs[cur] {
			if next == sub {
				return true
			}
			stack = append(stack, next)
		}
	}

	return false
}
