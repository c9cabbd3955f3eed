package capability

import (
	"maps"
	"slices"

	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/places"
)

// Projections is the partition of an allocated local: tracked places and
// their capabilities.
type Projections map[mir.Place]Kind

// Places returns tracked places in a deterministic order.
func (p Projections) Places() []mir.Place {
	res := slices.Collect(maps.Keys(p))
	slices.SortFunc(res, mir.Place.Cmp)

	return res
}

// related is a tracked place overlapping some other place.
type related struct {
	place mir.Place
	kind  Kind
	ord   places.Ordering
}

// findAllRelated returns tracked places overlapping to, ordered. The
// ordering is of the tracked place relative to to.
func (p Projections) findAllRelated(to mir.Place) []related {
	var res []related
	for _, place := range p.Places() {
		if ord, ok := places.Compare(place, to); ok {
			res = append(res, related{place: place, kind: p[place], ord: ord})
		}
	}

	return res
}

// relation classifies a set of related places as a whole.
func relation(rel []related) places.Ordering {
	res := places.Suffix
	for _, r := range rel {
		switch r.ord {
		case places.Equal, places.Prefix:
			return r.ord
		case places.Both:
			res = places.Both
		}
	}

	return res
}

func relatedPlaces(rel []related) []mir.Place {
	res := make([]mir.Place, len(rel))
	for i, r := range rel {
		res[i] = r.place
	}

	return res
}

// expand replaces from with the places produced by expanding it towards to.
// Every new place inherits the capability of from.
func (p Projections) expand(r *places.Repacker, from, to mir.Place) []Op {
	held, ok := p[from]
	if !ok {
		return nil
	}

	expanded, others := r.Expand(from, to)
	if len(expanded) == 0 {
		return nil
	}

	delete(p, from)
	for _, o := range others {
		p[o] = held
	}
	p[to] = held

	ops := make([]Op, len(expanded))
	for i, e := range expanded {
		ops[i] = Op{Kind: OpExpand, Base: e.Base, Target: e.Target, To: held}
	}

	return ops
}

// collapse replaces from places with to. The new capability is the meet of
// the collapsed ones. It returns false and leaves p intact when from lacks
// some place needed to rebuild to.
func (p Projections) collapse(r *places.Repacker, from []mir.Place, to mir.Place) ([]Op, bool) {
	if len(from) == 0 || !r.CanCollapse(to, from) {
		return nil, false
	}

	set := make(map[mir.Place]struct{}, len(from))
	held := kindInvalid
	for _, f := range from {
		k := p[f]
		set[f] = struct{}{}
		if held == kindInvalid {
			held = k
		} else {
			held = Meet(held, k)
		}
		delete(p, f)
	}

	collapsed := r.Collapse(to, set)
	p[to] = held

	ops := make([]Op, len(collapsed))
	for i, e := range collapsed {
		ops[i] = Op{Kind: OpCollapse, Base: e.Base, Target: e.Target, To: held}
	}

	return ops, true
}

// repack makes place an exact key of the partition. It returns false when
// the partition has a hole where place lies.
func (p Projections) repack(r *places.Repacker, place mir.Place) ([]Op, bool) {
	rel := p.findAllRelated(place)
	if len(rel) == 0 {
		return nil, false
	}

	switch relation(rel) {
	case places.Equal:
		return nil, true
	case places.Prefix:
		return p.expand(r, rel[0].place, place), true
	case places.Suffix:
		return p.collapse(r, p.under(place), place)
	default:
		cp := places.CommonPrefixAll(place, relatedPlaces(rel)...)
		ops, ok := p.collapse(r, p.under(cp), cp)
		if !ok {
			return nil, false
		}
		if cp != place {
			ops = append(ops, p.expand(r, cp, place)...)
		}
		return ops, true
	}
}

// covering returns the tracked place equal to or being a prefix of place.
func (p Projections) covering(place mir.Place) (mir.Place, Kind, bool) {
	for q := place; ; {
		if k, ok := p[q]; ok {
			return q, k, true
		}
		parent, ok := q.Parent()
		if !ok {
			return mir.Place{}, kindInvalid, false
		}
		q = parent
	}
}

// under returns tracked places having place as a prefix.
func (p Projections) under(place mir.Place) []mir.Place {
	var res []mir.Place
	for _, q := range p.Places() {
		if place.IsPrefixOf(q) {
			res = append(res, q)
		}
	}

	return res
}

// join joins other into p. It returns true when p has changed.
//
// Both sides are first brought to the same keys wherever they overlap, then
// every shared key gets the minimum of the two capabilities. Incomparable
// capabilities drop the key. A place tracked on one side only lies in a hole
// of the other side and is dropped too.
func (p Projections) join(r *places.Repacker, other Projections) bool {
	self, that := maps.Clone(p), maps.Clone(other)
	for {
		a, b, ok := firstMismatch(self, that)
		if !ok {
			break
		}

		ord, _ := places.Compare(a, b)
		switch ord {
		case places.Prefix:
			reconcile(r, self, a, that, b)
		case places.Suffix:
			reconcile(r, that, b, self, a)
		default:
			reconcileOverlap(r, self, that, places.CommonPrefix(a, b))
		}
	}

	res := Projections{}
	for place, kind := range self {
		okind, ok := that[place]
		if !ok {
			continue
		}
		if m, ok := Minimum(kind, okind); ok {
			res[place] = m
		}
	}

	if maps.Equal(p, res) {
		return false
	}
	clear(p)
	maps.Copy(p, res)

	return true
}

// firstMismatch returns the least pair of overlapping unequal places of two
// partitions. The order of pairs does not depend on the order of sides.
func firstMismatch(self, that Projections) (mir.Place, mir.Place, bool) {
	var (
		a, b   mir.Place
		lo, hi mir.Place
		found  bool
	)
	for _, x := range self.Places() {
		for _, y := range that.findAllRelated(x) {
			if y.ord == places.Equal {
				continue
			}
			l, h := x, y.place
			if l.Cmp(h) > 0 {
				l, h = h, l
			}
			if found && (lo.Cmp(l) < 0 || lo == l && hi.Cmp(h) <= 0) {
				continue
			}
			a, b, lo, hi, found = x, y.place, l, h, true
		}
	}

	return a, b, found
}

// reconcile brings coarse place of one partition and the places of the fine
// partition lying under it to the same keys. An exclusive coarse place is
// expanded towards fine, otherwise the fine side is collapsed. A fine side
// with holes under coarse cannot be collapsed, the coarse side takes its
// keys then.
func reconcile(r *places.Repacker, coarseSide Projections, coarse mir.Place, fineSide Projections, fine mir.Place) {
	kind := coarseSide[coarse]
	if kind == Exclusive {
		if target := r.JoinableTo(coarse, fine); target != coarse {
			if ops := coarseSide.expand(r, coarse, target); len(ops) > 0 {
				return
			}
		}
	}

	under := fineSide.under(coarse)
	if _, ok := fineSide.collapse(r, under, coarse); ok {
		return
	}

	delete(coarseSide, coarse)
	for _, q := range under {
		coarseSide[q] = kind
	}
}

// reconcileOverlap collapses both partitions to the common prefix of
// overlapping places. When either side cannot be collapsed the whole common
// prefix becomes a hole.
func reconcileOverlap(r *places.Repacker, self, that Projections, cp mir.Place) {
	su, tu := self.under(cp), that.under(cp)
	if r.CanCollapse(cp, su) && r.CanCollapse(cp, tu) {
		self.collapse(r, su, cp)
		that.collapse(r, tu, cp)
		return
	}

	for _, q := range su {
		delete(self, q)
	}
	for _, q := range tu {
		delete(that, q)
	}
}
