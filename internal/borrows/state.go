package borrows

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/tools/container/intsets"

	"github.com/sirkon/pcg/internal/mir"
)

// State is the borrow graph domain: live edges with their path conditions
// plus the latest map.
type State struct {
	arena  *Arena
	edges  map[EdgeID]PathConditions
	latest Latest
}

// NewState creates an empty state over the arena.
func NewState(arena *Arena) *State {
	return &State{
		arena:  arena,
		edges:  map[EdgeID]PathConditions{},
		latest: Latest{},
	}
}

// Arena returns the arena the state refers to.
func (s *State) Arena() *Arena {
	return s.arena
}

// Latest returns the latest map of the state.
func (s *State) Latest() Latest {
	return s.latest
}

// Clone copies the state. The arena is shared.
func (s *State) Clone() *State {
	return &State{
		arena:  s.arena,
		edges:  maps.Clone(s.edges),
		latest: maps.Clone(s.latest),
	}
}

// Equal checks if states have the same edges, conditions and latest maps.
func (s *State) Equal(o *State) bool {
	if !maps.Equal(s.latest, o.latest) {
		return false
	}

	return maps.EqualFunc(s.edges, o.edges, PathConditions.Equal)
}

// Edges returns IDs of live edges in ascending order.
func (s *State) Edges() []EdgeID {
	res := slices.Collect(maps.Keys(s.edges))
	slices.Sort(res)

	return res
}

// EdgesOf returns live edges of the kind.
func (s *State) EdgesOf(kind EdgeKind) []EdgeID {
	var res []EdgeID
	for _, id := range s.Edges() {
		if s.arena.EdgeAt(id).Kind == kind {
			res = append(res, id)
		}
	}

	return res
}

// Conditions returns path conditions of a live edge.
func (s *State) Conditions(id EdgeID) (PathConditions, bool) {
	pc, ok := s.edges[id]
	return pc, ok
}

// Has checks if the edge is live.
func (s *State) Has(id EdgeID) bool {
	_, ok := s.edges[id]
	return ok
}

// Insert adds an unconditional edge. Returns its ID and true if the state
// has changed.
func (s *State) Insert(e Edge) (EdgeID, bool) {
	id := s.arena.Edge(e)
	pc, ok := s.edges[id]
	if ok && pc.IsUnconditional() {
		return id, false
	}
	s.edges[id] = nil

	return id, true
}

// Remove drops an edge.
func (s *State) Remove(id EdgeID) bool {
	if _, ok := s.edges[id]; !ok {
		return false
	}
	delete(s.edges, id)

	return true
}

// Node interns a node in the arena of the state.
func (s *State) Node(n Node) NodeID {
	return s.arena.Node(n)
}

// blocked returns nodes blocked by some live edge.
func (s *State) blocked() *intsets.Sparse {
	var res intsets.Sparse
	for id := range s.edges {
		for _, n := range s.arena.EdgeAt(id).Blocked {
			res.Insert(int(n))
		}
	}

	return &res
}

// blocking returns nodes keeping some live edge alive.
func (s *State) blocking() *intsets.Sparse {
	var res intsets.Sparse
	for id := range s.edges {
		for _, n := range s.arena.EdgeAt(id).BlockedBy {
			res.Insert(int(n))
		}
	}

	return &res
}

// Nodes returns every node of live edges.
func (s *State) Nodes() []NodeID {
	all := s.blocked()
	all.UnionWith(s.blocking())

	return toNodeIDs(all)
}

// Leaves returns nodes nothing is blocking: nodes of live edges that are not
// blocked.
func (s *State) Leaves() []NodeID {
	leaves := s.blocking()
	leaves.DifferenceWith(s.blocked())

	return toNodeIDs(leaves)
}

// Roots returns blocked nodes that do not block anything.
func (s *State) Roots() []NodeID {
	roots := s.blocked()
	roots.DifferenceWith(s.blocking())

	return toNodeIDs(roots)
}

// IsBlocked checks if some live edge blocks the node.
func (s *State) IsBlocked(n Node) bool {
	id, ok := s.arena.LookupNode(n)
	if !ok {
		return false
	}

	return s.blocked().Has(int(id))
}

// Contains checks if the node belongs to some live edge.
func (s *State) Contains(n Node) bool {
	id, ok := s.arena.LookupNode(n)
	if !ok {
		return false
	}

	for eid := range s.edges {
		e := s.arena.EdgeAt(eid)
		if slices.Contains(e.Blocked, id) || slices.Contains(e.BlockedBy, id) {
			return true
		}
	}

	return false
}

// Reborrows returns live reborrow edges.
func (s *State) Reborrows() []EdgeID {
	return s.EdgesOf(EdgeReborrow)
}

// ReborrowsBlocking returns live reborrows lending a current place
// overlapping p, including reborrows of places p is a prefix of.
func (s *State) ReborrowsBlocking(p mir.Place) []EdgeID {
	var res []EdgeID
	for _, id := range s.Reborrows() {
		for _, n := range s.arena.Nodes(s.arena.EdgeAt(id).Blocked) {
			if n.Kind == NodePlace && !n.Place.Old && overlaps(n.Place.Place, p) {
				res = append(res, id)
				break
			}
		}
	}

	return res
}

func overlaps(a, b mir.Place) bool {
	return a.IsPrefixOf(b) || b.IsPrefixOf(a)
}

// Join merges other into s. Edges are united, conditions of edges present in
// both states are joined. Returns true when s has changed.
func (s *State) Join(other *State, block mir.BlockID) bool {
	changed := s.latest.Join(other.latest, block)
	for id, opc := range other.edges {
		pc, ok := s.edges[id]
		if !ok {
			s.edges[id] = opc
			changed = true
			continue
		}

		joined := pc.Join(opc)
		if !joined.Equal(pc) {
			s.edges[id] = joined
			changed = true
		}
	}

	return changed
}

// AddPathCondition labels every edge with the control flow edge.
func (s *State) AddPathCondition(e BlockEdge) {
	for id, pc := range s.edges {
		s.edges[id] = pc.With(e)
	}
}

// NormalizePathConditions drops conditions every path into block agrees on.
func (s *State) NormalizePathConditions(block mir.BlockID, preds []mir.BlockID) {
	for id, pc := range s.edges {
		s.edges[id] = pc.WithoutIncoming(block, preds)
	}
}

func (s *State) String() string {
	var buf strings.Builder
	for i, id := range s.Edges() {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(s.arena.EdgeString(id))
		if pc := s.edges[id]; !pc.IsUnconditional() {
			buf.WriteString(" if ")
			buf.WriteString(pc.String())
		}
	}

	return buf.String()
}

func toNodeIDs(set *intsets.Sparse) []NodeID {
	ints := set.AppendTo(nil)
	res := make([]NodeID, len(ints))
	for i, v := range ints {
		res[i] = NodeID(v)
	}

	return res
}
