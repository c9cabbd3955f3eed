package places

import (
	"fmt"

	"github.com/sirkon/pcg/internal/mir"
)

// Ordering is the relation between two overlapping places.
type Ordering int

const (
	orderingInvalid Ordering = iota

	// Equal places.
	Equal

	// Prefix means the left place is a strict prefix of the right one.
	Prefix

	// Suffix means the right place is a strict prefix of the left one.
	Suffix

	// Both means places overlap without one containing another, e.g.
	// different variants of one enum.
	Both
)

func (o Ordering) String() string {
	switch o {
	case Equal:
		return "equal"
	case Prefix:
		return "prefix"
	case Suffix:
		return "suffix"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("invalid(%d)", int(o))
	}
}

// Compare relates two places. It returns false when places are disjoint.
func Compare(a, b mir.Place) (Ordering, bool) {
	if a.Local() != b.Local() {
		return orderingInvalid, false
	}

	pa := a.Projection()
	pb := b.Projection()
	n := min(len(pa), len(pb))
	for i := 0; i < n; i++ {
		ea, eb := pa[i], pb[i]
		if ea == eb {
			continue
		}

		switch {
		case ea.Kind == mir.ElemField && eb.Kind == mir.ElemField:
			return orderingInvalid, false
		case ea.Kind == mir.ElemConstantIndex && eb.Kind == mir.ElemConstantIndex &&
			ea.FromEnd == eb.FromEnd && ea.Offset != eb.Offset:
			return orderingInvalid, false
		default:
			return Both, true
		}
	}

	switch {
	case len(pa) == len(pb):
		return Equal, true
	case len(pa) < len(pb):
		return Prefix, true
	default:
		return Suffix, true
	}
}

// Related reports whether places overlap.
func Related(a, b mir.Place) bool {
	_, ok := Compare(a, b)
	return ok
}

// CommonPrefix returns the longest common prefix of two places of one local.
func CommonPrefix(a, b mir.Place) mir.Place {
	pa := a.Projection()
	pb := b.Projection()
	n := 0
	for n < len(pa) && n < len(pb) && pa[n] == pb[n] {
		n++
	}

	return a.Prefix(n)
}

// CommonPrefixAll returns the longest common prefix of all given places.
func CommonPrefixAll(first mir.Place, rest ...mir.Place) mir.Place {
	res := first
	for _, p := range rest {
		res = CommonPrefix(res, p)
	}

	return res
}
