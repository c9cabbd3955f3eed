package borrows

import (
	"cmp"
	"fmt"

	"github.com/sirkon/pcg/internal/mir"
)

// MaybeOldPlace is either a current place or a snapshot of the place taken
// at the location of its latest write.
type MaybeOldPlace struct {
	Place mir.Place
	Old   bool
	At    mir.Location
}

// Current wraps a current place.
func Current(p mir.Place) MaybeOldPlace {
	return MaybeOldPlace{Place: p}
}

// OldAt wraps a snapshot of a place taken at the given location.
func OldAt(p mir.Place, at mir.Location) MaybeOldPlace {
	return MaybeOldPlace{Place: p, Old: true, At: at}
}

// Project extends the wrapped place keeping the snapshot tag.
func (p MaybeOldPlace) Project(elems ...mir.Elem) MaybeOldPlace {
	p.Place = p.Place.Project(elems...)
	return p
}

// Cmp orders places, current places go first.
func (p MaybeOldPlace) Cmp(q MaybeOldPlace) int {
	if c := p.Place.Cmp(q.Place); c != 0 {
		return c
	}
	if p.Old != q.Old {
		if !p.Old {
			return -1
		}
		return 1
	}

	return p.At.Cmp(q.At)
}

func (p MaybeOldPlace) String() string {
	if p.Old {
		return fmt.Sprintf("%s at %s", p.Place, p.At)
	}

	return p.Place.String()
}

// NodeKind enumerates borrow graph node kinds.
type NodeKind int

const (
	nodeInvalid NodeKind = iota
	NodePlace
	NodeRemote
	NodeRegionProjection
)

var nodeKindNames = map[NodeKind]string{
	NodePlace:            "place",
	NodeRemote:           "remote",
	NodeRegionProjection: "region projection",
}

func (k NodeKind) String() string {
	v, ok := nodeKindNames[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// Node is a borrow graph node. Nodes are comparable values.
//
//   - NodePlace uses Place.
//   - NodeRemote uses Local: the value a caller passed into an argument.
//   - NodeRegionProjection uses Place, Index and Region: the Index-th region
//     of the place's type, Region is its identifier.
type Node struct {
	Kind   NodeKind
	Place  MaybeOldPlace
	Local  mir.Local
	Index  int
	Region mir.RegionVid
}

// PlaceNode creates a place node.
func PlaceNode(p MaybeOldPlace) Node {
	return Node{Kind: NodePlace, Place: p}
}

// RemoteNode creates a remote node of an argument.
func RemoteNode(l mir.Local) Node {
	return Node{Kind: NodeRemote, Local: l}
}

// RegionProjectionNode creates a region projection node.
func RegionProjectionNode(p MaybeOldPlace, index int, region mir.RegionVid) Node {
	return Node{Kind: NodeRegionProjection, Place: p, Index: index, Region: region}
}

// IsOld checks if the node refers to a snapshot.
func (n Node) IsOld() bool {
	return n.Kind != NodeRemote && n.Place.Old
}

// RegionVid returns the region of a region projection.
func (n Node) RegionVid() mir.RegionVid {
	return n.Region
}

// HasPlace reports whether the node is a place or a region projection.
func (n Node) HasPlace() bool {
	return n.Kind == NodePlace || n.Kind == NodeRegionProjection
}

// Cmp is a total order on nodes.
func (n Node) Cmp(o Node) int {
	if c := cmp.Compare(n.Kind, o.Kind); c != 0 {
		return c
	}

	switch n.Kind {
	case NodeRemote:
		return cmp.Compare(n.Local, o.Local)
	case NodeRegionProjection:
		if c := n.Place.Cmp(o.Place); c != 0 {
			return c
		}
		if c := cmp.Compare(n.Index, o.Index); c != 0 {
			return c
		}
		return cmp.Compare(n.Region, o.Region)
	default:
		return n.Place.Cmp(o.Place)
	}
}

func (n Node) String() string {
	switch n.Kind {
	case NodePlace:
		return n.Place.String()
	case NodeRemote:
		return "remote(" + n.Local.String() + ")"
	case NodeRegionProjection:
		return fmt.Sprintf("rp(%s, %d: %s)", n.Place, n.Index, n.Region)
	default:
		return n.Kind.String()
	}
}
