package places

import (
	"slices"

	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/validity"
)

// RefKind describes what a single expansion step went through.
type RefKind int

const (
	refKindInvalid RefKind = iota
	RefOther
	RefShared
	RefMut
	RefRawPtr
	RefBox
)

func (k RefKind) String() string {
	switch k {
	case RefOther:
		return "other"
	case RefShared:
		return "ref"
	case RefMut:
		return "ref mut"
	case RefRawPtr:
		return "raw"
	case RefBox:
		return "box"
	default:
		return "invalid"
	}
}

// Expansion is a single level expansion of Base towards Target. Target is
// the child of Base lying on the expansion path.
type Expansion struct {
	Base   mir.Place
	Target mir.Place
	Kind   RefKind
}

// Expand subtracts to from from. It unrolls from level by level down to the
// depth of to and returns the chain of expansions performed along with every
// produced place not on the path to to.
func (r *Repacker) Expand(from, to mir.Place) ([]Expansion, []mir.Place) {
	if !from.IsPrefixOf(to) {
		r.check.Assert(false, validity.PCG001ExpandNotPrefix,
			"the minuend %s must be a prefix of the subtrahend %s", from, to)
		return nil, nil
	}

	var (
		expanded []Expansion
		siblings []mir.Place
	)
	for from.Len() < to.Len() {
		next, others, kind := r.ExpandOneLevel(from, to)
		expanded = append(expanded, Expansion{Base: from, Target: next, Kind: kind})
		siblings = append(siblings, others...)
		from = next
	}

	return expanded, siblings
}

// ExpandOneLevel expands place one level down following guide. It returns
// the next place on the path, the other places produced by the expansion
// and the kind of the step.
//
// The sibling list is always incomplete for Index and Subslice steps and for
// constant indices into slices.
func (r *Repacker) ExpandOneLevel(place, guide mir.Place) (mir.Place, []mir.Place, RefKind) {
	e := guide.Elem(place.Len())
	next := place.Project(e)

	switch e.Kind {
	case mir.ElemField:
		return next, r.ExpandField(place, e.Index), RefOther
	case mir.ElemConstantIndex:
		lo, hi := 0, e.Length
		if e.FromEnd {
			lo, hi = 1, e.Length+1
		}
		if e.Offset < lo || e.Offset >= hi {
			r.check.Assert(false, validity.PCG006InvalidProjection,
				"%s: constant index offset %d is out of [%d, %d)", guide, e.Offset, lo, hi)
			return next, nil, RefOther
		}
		var others []mir.Place
		for i := lo; i < hi; i++ {
			if i != e.Offset {
				others = append(others, place.Project(mir.ConstantIndexElem(i, e.Length, e.FromEnd)))
			}
		}
		return next, others, RefOther
	case mir.ElemDeref:
		t := r.Ty(place).Ty
		switch t.Kind {
		case mir.TyRef:
			if t.Mut == mir.Mut {
				return next, nil, RefMut
			}
			return next, nil, RefShared
		case mir.TyRawPtr:
			return next, nil, RefRawPtr
		case mir.TyBox:
			return next, nil, RefBox
		}
		r.check.Assert(false, validity.PCG006InvalidProjection, "%s: dereference of %s", place, t)
		return next, nil, RefOther
	default:
		return next, nil, RefOther
	}
}

// ExpandField expands a place of a struct, tuple, enum variant or reference
// type into all of its immediate children. The child with index without is
// omitted, pass -1 to keep all of them.
func (r *Repacker) ExpandField(place mir.Place, without int) []mir.Place {
	pt := r.Ty(place)
	t := pt.Ty

	var fields []*mir.Ty
	switch t.Kind {
	case mir.TyStruct, mir.TyTuple:
		fields = t.Fields
	case mir.TyEnum:
		if pt.Variant < 0 {
			validity.Unimplemented("%s: field expansion of enum %s without a downcast", place, t)
		}
		fields = t.Variants[pt.Variant].Fields
	case mir.TyRef:
		return []mir.Place{place.Deref()}
	default:
		r.check.Assert(false, validity.PCG006InvalidProjection, "%s: cannot expand fields of %s", place, t)
		return nil
	}

	var res []mir.Place
	for i := range fields {
		if i != without {
			res = append(res, place.Field(i))
		}
	}

	return res
}

// Collapse tries to rebuild guide from places in from. It is the inverse of
// Expand: returned expansions are ordered innermost first, every consumed
// place is removed from from.
func (r *Repacker) Collapse(guide mir.Place, from map[mir.Place]struct{}) []Expansion {
	var collapsed []Expansion
	guides := []mir.Place{guide}
	for len(guides) > 0 {
		g := guides[len(guides)-1]
		guides = guides[:len(guides)-1]

		if _, ok := from[g]; ok {
			delete(from, g)
			continue
		}

		target, ok := firstBelow(g, from)
		if !ok {
			r.check.Assert(false, validity.PCG002CollapseMissingPlace,
				"the set of places %v does not contain places required to construct %s", sortedKeys(from), g)
			continue
		}

		expanded, others := r.Expand(g, target)
		collapsed = append(collapsed, expanded...)
		guides = append(guides, others...)
		delete(from, target)
	}

	slices.Reverse(collapsed)
	return collapsed
}

// CanCollapse reports whether Collapse can rebuild guide from places in from
// without missing any place.
func (r *Repacker) CanCollapse(guide mir.Place, from []mir.Place) bool {
	set := make(map[mir.Place]struct{}, len(from))
	for _, p := range from {
		set[p] = struct{}{}
	}

	guides := []mir.Place{guide}
	for len(guides) > 0 {
		g := guides[len(guides)-1]
		guides = guides[:len(guides)-1]

		if _, ok := set[g]; ok {
			delete(set, g)
			continue
		}

		target, ok := firstBelow(g, set)
		if !ok {
			return false
		}
		_, others := r.Expand(g, target)
		guides = append(guides, others...)
		delete(set, target)
	}

	return true
}

// firstBelow finds the smallest place of the set having p as a strict
// prefix.
func firstBelow(p mir.Place, set map[mir.Place]struct{}) (mir.Place, bool) {
	var (
		res   mir.Place
		found bool
	)
	for q := range set {
		if !p.IsStrictPrefixOf(q) {
			continue
		}
		if !found || q.Cmp(res) < 0 {
			res = q
			found = true
		}
	}

	return res, found
}

func sortedKeys(set map[mir.Place]struct{}) []mir.Place {
	res := make([]mir.Place, 0, len(set))
	for p := range set {
		res = append(res, p)
	}
	slices.SortFunc(res, mir.Place.Cmp)

	return res
}
