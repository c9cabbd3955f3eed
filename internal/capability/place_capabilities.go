package capability

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sirkon/pcg/internal/mir"
)

// PlaceCapabilities is a flat view of capabilities: no partition structure,
// just places and what is held over them.
type PlaceCapabilities map[mir.Place]Kind

// Join joins other into c pointwise. Places missing on either side or held
// with incomparable capabilities are dropped. Returns true when c has
// changed.
func (c PlaceCapabilities) Join(other PlaceCapabilities) bool {
	var changed bool
	for p, k := range c {
		theirs, found := other[p]
		if !found {
			delete(c, p)
			changed = true
			continue
		}

		m, related := Minimum(k, theirs)
		switch {
		case !related:
			delete(c, p)
			changed = true
		case m != k:
			c[p] = m
			changed = true
		}
	}

	return changed
}

// Places returns places in a deterministic order.
func (c PlaceCapabilities) Places() []mir.Place {
	res := slices.Collect(maps.Keys(c))
	slices.SortFunc(res, mir.Place.Cmp)

	return res
}

func (c PlaceCapabilities) String() string {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, p := range c.Places() {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %s", p, c[p].Short())
	}
	buf.WriteByte('}')

	return buf.String()
}
