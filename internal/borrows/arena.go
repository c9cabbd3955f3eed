package borrows

import (
	"fmt"
	"strings"

	"github.com/sirkon/rbtree"
)

// NodeID is a stable index of an interned node.
type NodeID int

// EdgeID is a stable index of an interned edge.
type EdgeID int

// Arena interns nodes and edges. It only grows: an ID once given out stays
// valid for the lifetime of the arena.
type Arena struct {
	nodes     []Node
	nodeIndex map[Node]NodeID
	edges     []Edge
	edgeIndex *rbtree.Tree[*edgeEntry]
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		nodeIndex: map[Node]NodeID{},
		edgeIndex: rbtree.New[*edgeEntry](),
	}
}

type edgeEntry struct {
	edge Edge
	id   EdgeID
}

func (e *edgeEntry) Cmp(other *edgeEntry) int {
	return e.edge.Cmp(other.edge)
}

// Node interns a node.
func (a *Arena) Node(n Node) NodeID {
	if id, ok := a.nodeIndex[n]; ok {
		return id
	}
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	a.nodeIndex[n] = id

	return id
}

// LookupNode returns the ID of a node if it was interned.
func (a *Arena) LookupNode(n Node) (NodeID, bool) {
	id, ok := a.nodeIndex[n]

	return id, ok
}

// NodeAt returns an interned node.
func (a *Arena) NodeAt(id NodeID) Node {
	return a.nodes[id]
}

// Edge interns an edge.
func (a *Arena) Edge(e Edge) EdgeID {
	e = e.normalized()
	entry := &edgeEntry{edge: e, id: EdgeID(len(a.edges))}
	if got := a.edgeIndex.InsertReturn(entry); got != entry {
		return got.id
	}
	a.edges = append(a.edges, e)

	return entry.id
}

// EdgeAt returns an interned edge. The returned node lists must not be
// changed.
func (a *Arena) EdgeAt(id EdgeID) Edge {
	return a.edges[id]
}

// Nodes resolves node IDs.
func (a *Arena) Nodes(ids []NodeID) []Node {
	res := make([]Node, len(ids))
	for i, id := range ids {
		res[i] = a.nodes[id]
	}

	return res
}

// EdgeString renders an interned edge.
func (a *Arena) EdgeString(id EdgeID) string {
	e := a.edges[id]
	blocked := a.nodeList(e.Blocked)
	blockedBy := a.nodeList(e.BlockedBy)

	switch e.Kind {
	case EdgeReborrow:
		return fmt.Sprintf("reborrow %s -> %s (%s, %s at %s)", blocked, blockedBy, e.Mut, e.Region, e.Location)
	case EdgeDerefExpansion:
		return fmt.Sprintf("expansion %s -> %s", blocked, blockedBy)
	case EdgeRegionProjectionMember:
		return fmt.Sprintf("member %s -> %s (%s)", blocked, blockedBy, e.Direction)
	case EdgeAbstraction:
		return fmt.Sprintf("call %s#%d %s -> %s at %s", e.Func, e.ArgIndex, blocked, blockedBy, e.Location)
	default:
		return e.Kind.String()
	}
}

func (a *Arena) nodeList(ids []NodeID) string {
	if len(ids) == 1 {
		return a.nodes[ids[0]].String()
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = a.nodes[id].String()
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
