package capability

import (
	"fmt"
	"maps"
	"strings"

	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/places"
	"github.com/sirkon/pcg/internal/validity"
)

// Summary is the capability summary of a body: per local either unallocated
// or allocated with a partition of its places.
type Summary struct {
	locals []Projections
}

// NewSummary creates a summary of n unallocated locals.
func NewSummary(n int) *Summary {
	return &Summary{
		locals: make([]Projections, n),
	}
}

// Len returns the number of locals.
func (s *Summary) Len() int {
	return len(s.locals)
}

// IsAllocated checks if the local is allocated.
func (s *Summary) IsAllocated(l mir.Local) bool {
	return s.locals[l] != nil
}

// Projections returns the partition of a local, nil for unallocated ones.
// The returned map must not be changed.
func (s *Summary) Projections(l mir.Local) Projections {
	return s.locals[l]
}

// Allocate makes a local allocated with the whole local held with kind.
func (s *Summary) Allocate(l mir.Local, kind Kind) Op {
	root := mir.NewPlace(l)
	s.locals[l] = Projections{root: kind}

	return Op{Kind: OpAllocate, Base: root, To: kind}
}

// Deallocate makes a local unallocated.
func (s *Summary) Deallocate(l mir.Local) Op {
	s.locals[l] = nil

	return Op{Kind: OpDeallocate, Base: mir.NewPlace(l)}
}

// Get returns the capability of place when it is tracked exactly.
func (s *Summary) Get(place mir.Place) (Kind, bool) {
	proj := s.locals[place.Local()]
	if proj == nil {
		return kindInvalid, false
	}

	k, ok := proj[place]
	return k, ok
}

// Covering returns the tracked place which is place itself or its prefix.
func (s *Summary) Covering(place mir.Place) (mir.Place, Kind, bool) {
	proj := s.locals[place.Local()]
	if proj == nil {
		return mir.Place{}, kindInvalid, false
	}

	return proj.covering(place)
}

// Set changes the capability of a tracked place. It returns a weaken or a
// restore op depending on the direction of the change, the second return is
// false when nothing has changed.
func (s *Summary) Set(place mir.Place, kind Kind) (Op, bool) {
	proj := s.locals[place.Local()]
	if proj == nil {
		return Op{}, false
	}

	cur, ok := proj[place]
	if ok && cur == kind {
		return Op{}, false
	}
	proj[place] = kind

	if ok && kind.LessEq(cur) {
		return Op{Kind: OpWeaken, Base: place, From: cur, To: kind}, true
	}

	return Op{Kind: OpRestore, Base: place, From: cur, To: kind}, true
}

// Remove drops a tracked place.
func (s *Summary) Remove(place mir.Place) (Op, bool) {
	proj := s.locals[place.Local()]
	if proj == nil {
		return Op{}, false
	}

	cur, ok := proj[place]
	if !ok {
		return Op{}, false
	}
	delete(proj, place)

	return Op{Kind: OpWeaken, Base: place, From: cur}, true
}

// Reset drops every tracked place overlapping place and tracks place itself
// with kind. This is the way to fill holes left by joins.
func (s *Summary) Reset(place mir.Place, kind Kind) []Op {
	proj := s.locals[place.Local()]
	if proj == nil {
		return nil
	}

	var ops []Op
	for _, r := range proj.findAllRelated(place) {
		delete(proj, r.place)
		ops = append(ops, Op{Kind: OpWeaken, Base: r.place, From: r.kind})
	}
	proj[place] = kind
	ops = append(ops, Op{Kind: OpRestore, Base: place, To: kind})

	return ops
}

// Repack changes the partition of the local of place so that place becomes
// tracked exactly. It returns false when the local is unallocated or when
// the partition has a hole where place lies.
func (s *Summary) Repack(r *places.Repacker, place mir.Place) ([]Op, bool) {
	proj := s.locals[place.Local()]
	if proj == nil {
		return nil, false
	}

	return proj.repack(r, place)
}

// Clone creates a deep copy of a summary.
func (s *Summary) Clone() *Summary {
	res := &Summary{
		locals: make([]Projections, len(s.locals)),
	}
	for i, proj := range s.locals {
		if proj != nil {
			res.locals[i] = maps.Clone(proj)
		}
	}

	return res
}

// Equal checks if summaries are the same.
func (s *Summary) Equal(other *Summary) bool {
	if len(s.locals) != len(other.locals) {
		return false
	}

	for i, proj := range s.locals {
		oproj := other.locals[i]
		if (proj == nil) != (oproj == nil) {
			return false
		}
		if !maps.Equal(proj, oproj) {
			return false
		}
	}

	return true
}

// Join joins other into s and returns true when s has changed.
//
// A local unallocated on either side becomes unallocated. Partitions of
// locals allocated on both sides are joined place by place.
func (s *Summary) Join(r *places.Repacker, other *Summary) bool {
	var changed bool
	for i, oproj := range other.locals {
		proj := s.locals[i]
		switch {
		case proj == nil:
		case oproj == nil:
			s.locals[i] = nil
			changed = true
		default:
			changed = proj.join(r, oproj) || changed
		}
	}

	return changed
}

// Capabilities flattens the summary.
func (s *Summary) Capabilities() PlaceCapabilities {
	res := PlaceCapabilities{}
	for _, proj := range s.locals {
		maps.Insert(res, maps.All(proj))
	}

	return res
}

// CheckFrontier checks no tracked place of a local is a prefix of another
// tracked place of it and every tracked place projects validly.
func (s *Summary) CheckFrontier(r *places.Repacker, check *validity.PhaseChecker) {
	if !check.Enabled() {
		return
	}

	for _, proj := range s.locals {
		keys := proj.Places()
		for i, p := range keys {
			r.Ty(p)
			for _, q := range keys[i+1:] {
				if places.Related(p, q) {
					check.Assert(false, validity.PCG004FrontierOverlap, "tracked places %s and %s overlap", p, q)
				}
			}
		}
	}
}

// Diff returns ops turning from into to.
func Diff(r *places.Repacker, from, to *Summary) []Op {
	var ops []Op
	for i := range from.locals {
		l := mir.Local(i)
		fproj, tproj := from.locals[i], to.locals[i]
		switch {
		case fproj == nil && tproj == nil:
			continue
		case tproj == nil:
			ops = append(ops, Op{Kind: OpDeallocate, Base: mir.NewPlace(l)})
			continue
		case fproj == nil:
			root := mir.NewPlace(l)
			ops = append(ops, Op{Kind: OpAllocate, Base: root, To: tproj[root]})
			fproj = Projections{}
			if k, ok := tproj[root]; ok {
				fproj[root] = k
			}
		default:
			fproj = maps.Clone(fproj)
		}

		for _, p := range tproj.Places() {
			repack, ok := fproj.repack(r, p)
			if !ok {
				ops = append(ops, Op{Kind: OpRestore, Base: p, To: tproj[p]})
				fproj[p] = tproj[p]
				continue
			}
			ops = append(ops, repack...)

			cur, want := fproj[p], tproj[p]
			switch {
			case cur == want:
			case want.LessEq(cur):
				ops = append(ops, Op{Kind: OpWeaken, Base: p, From: cur, To: want})
			default:
				ops = append(ops, Op{Kind: OpRestore, Base: p, From: cur, To: want})
			}
			fproj[p] = want
		}

		for _, p := range fproj.Places() {
			if _, ok := tproj[p]; !ok {
				ops = append(ops, Op{Kind: OpWeaken, Base: p, From: fproj[p]})
			}
		}
	}

	return ops
}

func (s *Summary) String() string {
	var buf strings.Builder
	for i, proj := range s.locals {
		if i > 0 {
			buf.WriteString("; ")
		}
		if proj == nil {
			fmt.Fprintf(&buf, "%s: unallocated", mir.Local(i))
			continue
		}
		if len(proj) == 0 {
			fmt.Fprintf(&buf, "%s: {}", mir.Local(i))
			continue
		}
		for j, p := range proj.Places() {
			if j > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%s: %s", p, proj[p].Short())
		}
	}

	return buf.String()
}
