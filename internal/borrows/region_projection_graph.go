package borrows

import (
	"slices"

	"github.com/sirkon/pcg/internal/coupling"
)

// RegionProjectionGraph extracts the graph over region projections: an
// abstraction edge connects every region projection it blocks with every
// region projection blocking it. Region projections of membership edges are
// added as nodes.
func (s *State) RegionProjectionGraph() *coupling.Graph[Node] {
	g := coupling.NewGraph[Node]()
	for _, id := range s.Edges() {
		e := s.arena.EdgeAt(id)
		switch e.Kind {
		case EdgeAbstraction:
			for _, from := range s.arena.Nodes(e.Blocked) {
				if from.Kind != NodeRegionProjection {
					continue
				}
				for _, to := range s.arena.Nodes(e.BlockedBy) {
					if to.Kind == NodeRegionProjection {
						g.AddEdge(from, to)
					}
				}
			}
		case EdgeRegionProjectionMember:
			for _, n := range s.arena.Nodes(slices.Concat(e.Blocked, e.BlockedBy)) {
				if n.Kind == NodeRegionProjection {
					g.AddNode(n)
				}
			}
		}
	}

	return g
}
