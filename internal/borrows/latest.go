package borrows

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sirkon/pcg/internal/mir"
)

// Latest maps places to locations of their most recent write.
type Latest map[mir.Place]mir.Location

// Get returns the latest write location of the place, looking the longest
// recorded prefix up. Places never written are considered written at the
// start of the body.
func (l Latest) Get(p mir.Place) mir.Location {
	for q := p; ; {
		if loc, ok := l[q]; ok {
			return loc
		}
		parent, ok := q.Parent()
		if !ok {
			return mir.StartLocation
		}
		q = parent
	}
}

// Set records a write of the place. Records of places it is a prefix of are
// overwritten.
func (l Latest) Set(p mir.Place, loc mir.Location) {
	for q := range l {
		if p.IsStrictPrefixOf(q) {
			delete(l, q)
		}
	}
	l[p] = loc
}

// Join merges other into l. Every place recorded on either side is looked
// up on both, places whose latest writes differ are considered written at
// the start of block. Returns true when l has changed.
func (l Latest) Join(other Latest, block mir.BlockID) bool {
	at := mir.Location{Block: block}
	res := make(Latest, len(l)+len(other))
	for _, side := range []Latest{l, other} {
		for p := range side {
			if _, ok := res[p]; ok {
				continue
			}
			a, b := l.Get(p), other.Get(p)
			if a != b {
				a = at
			}
			res[p] = a
		}
	}

	if maps.Equal(l, res) {
		return false
	}
	clear(l)
	maps.Copy(l, res)

	return true
}

// Places returns recorded places in a deterministic order.
func (l Latest) Places() []mir.Place {
	res := slices.Collect(maps.Keys(l))
	slices.SortFunc(res, mir.Place.Cmp)

	return res
}

func (l Latest) String() string {
	parts := make([]string, 0, len(l))
	for _, p := range l.Places() {
		parts = append(parts, fmt.Sprintf("%s: %s", p, l[p]))
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
