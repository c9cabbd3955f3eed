package borrows

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sirkon/pcg/internal/mir"
)

// EdgeKind enumerates borrow graph edge kinds.
type EdgeKind int

const (
	edgeInvalid EdgeKind = iota

	// EdgeReborrow means Blocked lends to BlockedBy: the assigned place.
	EdgeReborrow

	// EdgeDerefExpansion connects a place with places it was expanded into.
	EdgeDerefExpansion

	// EdgeRegionProjectionMember relates a place and a region projection.
	EdgeRegionProjectionMember

	// EdgeAbstraction summarizes a call: inputs are blocked by outputs.
	EdgeAbstraction
)

var edgeKindNames = map[EdgeKind]string{
	EdgeReborrow:               "reborrow",
	EdgeDerefExpansion:         "deref expansion",
	EdgeRegionProjectionMember: "region projection member",
	EdgeAbstraction:            "abstraction",
}

func (k EdgeKind) String() string {
	v, ok := edgeKindNames[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// Direction of a region projection member edge.
type Direction int

const (
	directionInvalid Direction = iota

	// PlaceIsRegionInput means the place is blocked by the region projection.
	PlaceIsRegionInput

	// PlaceIsRegionOutput means the region projection is blocked by the place.
	PlaceIsRegionOutput
)

func (d Direction) String() string {
	switch d {
	case PlaceIsRegionInput:
		return "input"
	case PlaceIsRegionOutput:
		return "output"
	default:
		return ""
	}
}

// Edge is a borrow graph edge. Blocked nodes cannot be used while the edge
// is alive, BlockedBy nodes are the ones keeping it alive.
//
// Mut and Region are set for reborrows. Location is the reserve location of a
// reborrow, the location of an expansion, of a membership or of a call. Func
// and ArgIndex are set for abstractions. Direction is set for memberships.
type Edge struct {
	Kind      EdgeKind
	Blocked   []NodeID
	BlockedBy []NodeID

	Mut       mir.Mutability
	Location  mir.Location
	Region    mir.RegionVid
	Func      string
	ArgIndex  int
	Direction Direction
}

// normalized returns a copy of the edge with sorted unique node lists.
func (e Edge) normalized() Edge {
	e.Blocked = sortedUnique(e.Blocked)
	e.BlockedBy = sortedUnique(e.BlockedBy)

	return e
}

func sortedUnique(ids []NodeID) []NodeID {
	res := slices.Clone(ids)
	slices.Sort(res)

	return slices.Compact(res)
}

// Cmp is a total order on normalized edges.
func (e Edge) Cmp(o Edge) int {
	if c := cmp.Compare(e.Kind, o.Kind); c != 0 {
		return c
	}
	if c := slices.Compare(e.Blocked, o.Blocked); c != 0 {
		return c
	}
	if c := slices.Compare(e.BlockedBy, o.BlockedBy); c != 0 {
		return c
	}
	if c := cmp.Compare(e.Mut, o.Mut); c != 0 {
		return c
	}
	if c := e.Location.Cmp(o.Location); c != 0 {
		return c
	}
	if c := cmp.Compare(e.Region, o.Region); c != 0 {
		return c
	}
	if c := cmp.Compare(e.Func, o.Func); c != 0 {
		return c
	}
	if c := cmp.Compare(e.ArgIndex, o.ArgIndex); c != 0 {
		return c
	}

	return cmp.Compare(e.Direction, o.Direction)
}
