package coupling

import (
	"maps"
	"slices"
)

// Graph is a directed graph with comparable nodes.
type Graph[N comparable] struct {
	nodes map[N]struct{}
	succs map[N]map[N]struct{}
	preds map[N]map[N]struct{}
}

// NewGraph creates an empty graph.
func NewGraph[N comparable]() *Graph[N] {
	return &Graph[N]{
		nodes: map[N]struct{}{},
		succs: map[N]map[N]struct{}{},
		preds: map[N]map[N]struct{}{},
	}
}

// AddNode adds a node.
func (g *Graph[N]) AddNode(n N) {
	g.nodes[n] = struct{}{}
}

// AddEdge adds an edge along with its nodes.
func (g *Graph[N]) AddEdge(from, to N) {
	g.AddNode(from)
	g.AddNode(to)
	addTo(g.succs, from, to)
	addTo(g.preds, to, from)
}

func addTo[N comparable](m map[N]map[N]struct{}, k, v N) {
	set, ok := m[k]
	if !ok {
		set = map[N]struct{}{}
		m[k] = set
	}
	set[v] = struct{}{}
}

// HasEdge checks if the edge exists.
func (g *Graph[N]) HasEdge(from, to N) bool {
	_, ok := g.succs[from][to]
	return ok
}

// Len returns the number of nodes.
func (g *Graph[N]) Len() int {
	return len(g.nodes)
}

// Nodes returns nodes ordered with cmp.
func (g *Graph[N]) Nodes(cmp func(a, b N) int) []N {
	return sorted(g.nodes, cmp)
}

// NodesPointingTo returns direct predecessors of the node ordered with cmp.
func (g *Graph[N]) NodesPointingTo(n N, cmp func(a, b N) int) []N {
	return sorted(g.preds[n], cmp)
}

// LeafNodes returns nodes without outgoing edges ordered with cmp.
func (g *Graph[N]) LeafNodes(cmp func(a, b N) int) []N {
	var res []N
	for n := range g.nodes {
		if len(g.succs[n]) == 0 {
			res = append(res, n)
		}
	}
	slices.SortFunc(res, cmp)

	return res
}

// Edge of a graph.
type Edge[N comparable] struct {
	From N
	To   N
}

// Edges returns all edges ordered by source and then by target.
func (g *Graph[N]) Edges(cmp func(a, b N) int) []Edge[N] {
	var res []Edge[N]
	for _, from := range sorted(g.nodes, cmp) {
		for _, to := range sorted(g.succs[from], cmp) {
			res = append(res, Edge[N]{From: from, To: to})
		}
	}

	return res
}

func sorted[N comparable](set map[N]struct{}, cmp func(a, b N) int) []N {
	res := slices.Collect(maps.Keys(set))
	slices.SortFunc(res, cmp)

	return res
}
