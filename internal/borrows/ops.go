package borrows

import (
	"slices"

	"golang.org/x/tools/container/intsets"

	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/places"
)

// AddReborrow records that assigned borrows from blocked.
func (s *State) AddReborrow(blocked, assigned Node, mut mir.Mutability, loc mir.Location, region mir.RegionVid) (EdgeID, bool) {
	return s.Insert(Edge{
		Kind:      EdgeReborrow,
		Blocked:   []NodeID{s.Node(blocked)},
		BlockedBy: []NodeID{s.Node(assigned)},
		Mut:       mut,
		Location:  loc,
		Region:    region,
	})
}

// AddDerefExpansion records that base was expanded into expansion.
func (s *State) AddDerefExpansion(base MaybeOldPlace, expansion []MaybeOldPlace, loc mir.Location) (EdgeID, bool) {
	by := make([]NodeID, len(expansion))
	for i, p := range expansion {
		by[i] = s.Node(PlaceNode(p))
	}

	return s.Insert(Edge{
		Kind:      EdgeDerefExpansion,
		Blocked:   []NodeID{s.Node(PlaceNode(base))},
		BlockedBy: by,
		Location:  loc,
	})
}

// AddRegionProjectionMember relates a place with a region projection.
func (s *State) AddRegionProjectionMember(place MaybeOldPlace, rp Node, dir Direction, loc mir.Location) (EdgeID, bool) {
	pn := s.Node(PlaceNode(place))
	rn := s.Node(rp)

	e := Edge{
		Kind:      EdgeRegionProjectionMember,
		Location:  loc,
		Direction: dir,
	}
	if dir == PlaceIsRegionInput {
		e.Blocked, e.BlockedBy = []NodeID{pn}, []NodeID{rn}
	} else {
		e.Blocked, e.BlockedBy = []NodeID{rn}, []NodeID{pn}
	}

	return s.Insert(e)
}

// AddRegionAbstraction records a call abstraction edge: inputs of the
// argument with the given index are blocked by outputs.
func (s *State) AddRegionAbstraction(fn string, argIndex int, loc mir.Location, inputs, outputs []Node) (EdgeID, bool) {
	e := Edge{
		Kind:     EdgeAbstraction,
		Func:     fn,
		ArgIndex: argIndex,
		Location: loc,
	}
	for _, n := range inputs {
		e.Blocked = append(e.Blocked, s.Node(n))
	}
	for _, n := range outputs {
		e.BlockedBy = append(e.BlockedBy, s.Node(n))
	}

	return s.Insert(e)
}

// SetLatest records a write of the place.
func (s *State) SetLatest(p mir.Place, loc mir.Location) {
	s.latest.Set(p, loc)
}

// GetLatest returns the location of the latest write of the place.
func (s *State) GetLatest(p mir.Place) mir.Location {
	return s.latest.Get(p)
}

// MakePlaceOld replaces current nodes of the place and of places it is a
// prefix of with snapshots taken at their latest write.
func (s *State) MakePlaceOld(p mir.Place) bool {
	return s.rewrite(func(n Node) (Node, bool) {
		if !n.HasPlace() || n.Place.Old || !p.IsPrefixOf(n.Place.Place) {
			return n, false
		}
		n.Place = OldAt(n.Place.Place, s.latest.Get(n.Place.Place))
		return n, true
	})
}

// ChangePCSElem replaces a node with another one in every live edge.
func (s *State) ChangePCSElem(old, replacement Node) bool {
	return s.rewrite(func(n Node) (Node, bool) {
		if n != old {
			return n, false
		}
		return replacement, true
	})
}

// rewrite maps nodes of every live edge. Rewritten edges keep their path
// conditions.
func (s *State) rewrite(f func(Node) (Node, bool)) bool {
	type replacement struct {
		edge Edge
		pc   PathConditions
	}

	var repl []replacement
	for _, id := range s.Edges() {
		e := s.arena.EdgeAt(id)
		blocked, c1 := s.mapNodes(e.Blocked, f)
		blockedBy, c2 := s.mapNodes(e.BlockedBy, f)
		if !c1 && !c2 {
			continue
		}

		ne := e
		ne.Blocked, ne.BlockedBy = blocked, blockedBy
		repl = append(repl, replacement{edge: ne, pc: s.edges[id]})
		delete(s.edges, id)
	}

	for _, r := range repl {
		id := s.arena.Edge(r.edge)
		if pc, ok := s.edges[id]; ok {
			s.edges[id] = pc.Join(r.pc)
		} else {
			s.edges[id] = r.pc
		}
	}

	return len(repl) > 0
}

// mapNodes returns ids unchanged when f keeps every node.
func (s *State) mapNodes(ids []NodeID, f func(Node) (Node, bool)) ([]NodeID, bool) {
	var (
		res     = ids
		changed bool
	)
	for i, id := range ids {
		n, ok := f(s.arena.NodeAt(id))
		if !ok {
			continue
		}
		if !changed {
			res = slices.Clone(ids)
			changed = true
		}
		res[i] = s.Node(n)
	}

	return res, changed
}

// DeleteDescendantsOf removes edges blocking the node and, transitively,
// edges blocking nodes those edges were kept alive by. Returns removed
// edges.
func (s *State) DeleteDescendantsOf(n Node) []EdgeID {
	id, ok := s.arena.LookupNode(n)
	if !ok {
		return nil
	}

	return s.deleteDescendants(id)
}

func (s *State) deleteDescendants(root NodeID) []EdgeID {
	var (
		removed []EdgeID
		visited intsets.Sparse
	)
	stack := []NodeID{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Insert(int(cur)) {
			continue
		}

		for _, eid := range s.Edges() {
			e := s.arena.EdgeAt(eid)
			if !slices.Contains(e.Blocked, cur) {
				continue
			}
			delete(s.edges, eid)
			removed = append(removed, eid)
			stack = append(stack, e.BlockedBy...)
		}
	}

	return removed
}

// TrimOldLeaves removes edges kept alive by old leaves only, until there are
// none. Returns removed edges in removal order.
func (s *State) TrimOldLeaves() []EdgeID {
	var removed []EdgeID
	for {
		blocked := s.blocked()
		var round []EdgeID
		for _, id := range s.Edges() {
			e := s.arena.EdgeAt(id)
			if s.allLeaves(e.BlockedBy, blocked, true) {
				round = append(round, id)
			}
		}
		if len(round) == 0 {
			return removed
		}

		for _, id := range round {
			delete(s.edges, id)
		}
		removed = append(removed, round...)
	}
}

// Minimize trims old leaves and collapses expansions nothing below is
// borrowed from, until neither changes the state. Returns removed edges.
func (s *State) Minimize() []EdgeID {
	var removed []EdgeID
	for {
		round := s.TrimOldLeaves()

		blocked := s.blocked()
		for _, id := range s.EdgesOf(EdgeDerefExpansion) {
			e := s.arena.EdgeAt(id)
			if s.allLeaves(e.BlockedBy, blocked, false) {
				delete(s.edges, id)
				round = append(round, id)
			}
		}

		if len(round) == 0 {
			return removed
		}
		removed = append(removed, round...)
	}
}

func (s *State) allLeaves(ids []NodeID, blocked *intsets.Sparse, old bool) bool {
	for _, id := range ids {
		if blocked.Has(int(id)) {
			return false
		}
		if old && !s.arena.NodeAt(id).IsOld() {
			return false
		}
	}

	return true
}

// EnsureExpansionToExactly adds expansions making the place a leaf of the
// graph: every step into a place behind a reference gets an expansion edge
// and expansions of the place and of places below it are dropped when
// nothing is borrowed from them. Returns added edges.
func (s *State) EnsureExpansionToExactly(r *places.Repacker, p mir.Place, loc mir.Location) []EdgeID {
	var added []EdgeID
	for i := 0; i < p.Len(); i++ {
		base := p.Prefix(i)
		if r.IsOwned(p.Prefix(i + 1)) {
			continue
		}

		next, others, _ := r.ExpandOneLevel(base, p)
		expansion := make([]MaybeOldPlace, 0, len(others)+1)
		expansion = append(expansion, Current(next))
		for _, o := range others {
			expansion = append(expansion, Current(o))
		}
		if s.hasExpansion(Current(base), expansion) {
			continue
		}
		if id, ok := s.AddDerefExpansion(Current(base), expansion, loc); ok {
			added = append(added, id)
		}
	}

	for {
		blocked := s.blocked()
		var dropped bool
		for _, id := range s.EdgesOf(EdgeDerefExpansion) {
			e := s.arena.EdgeAt(id)
			base := s.arena.NodeAt(e.Blocked[0])
			if base.Place.Old || !p.IsPrefixOf(base.Place.Place) {
				continue
			}
			if s.allLeaves(e.BlockedBy, blocked, false) {
				delete(s.edges, id)
				added = slices.DeleteFunc(added, func(a EdgeID) bool { return a == id })
				dropped = true
			}
		}
		if !dropped {
			return added
		}
	}
}

// hasExpansion checks if base is already expanded into the same places at
// any location.
func (s *State) hasExpansion(base MaybeOldPlace, expansion []MaybeOldPlace) bool {
	want := make([]NodeID, len(expansion))
	for i, p := range expansion {
		want[i] = s.Node(PlaceNode(p))
	}
	want = sortedUnique(want)
	baseID := s.Node(PlaceNode(base))

	for _, id := range s.EdgesOf(EdgeDerefExpansion) {
		e := s.arena.EdgeAt(id)
		if e.Blocked[0] == baseID && slices.Equal(e.BlockedBy, want) {
			return true
		}
	}

	return false
}

// Unblock removes reborrows lending places overlapping p together with
// everything borrowing from their assigned places. Returns removed
// reborrows.
func (s *State) Unblock(p mir.Place) []EdgeID {
	var res []EdgeID
	for _, id := range s.ReborrowsBlocking(p) {
		res = append(res, s.killReborrow(id)...)
	}

	return res
}

// KillLoan removes reborrows created at reserve lending borrowed, together
// with everything borrowing from them. Returns removed reborrows.
func (s *State) KillLoan(reserve mir.Location, borrowed mir.Place) []EdgeID {
	var res []EdgeID
	for _, id := range s.Reborrows() {
		e := s.arena.EdgeAt(id)
		if e.Location != reserve {
			continue
		}
		n := s.arena.NodeAt(e.Blocked[0])
		if n.Kind == NodePlace && n.Place.Place == borrowed {
			res = append(res, s.killReborrow(id)...)
		}
	}

	return res
}

func (s *State) killReborrow(id EdgeID) []EdgeID {
	if !s.Remove(id) {
		return nil
	}

	res := []EdgeID{id}
	for _, n := range s.arena.EdgeAt(id).BlockedBy {
		for _, removed := range s.deleteDescendants(n) {
			if s.arena.EdgeAt(removed).Kind == EdgeReborrow {
				res = append(res, removed)
			}
		}
	}

	return res
}
