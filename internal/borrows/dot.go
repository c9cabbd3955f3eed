package borrows

import (
	"fmt"
	"io"
	"strconv"
)

var nodeStyles = map[NodeKind]string{
	NodePlace:            `shape=rect`,
	NodeRemote:           `shape=rect, style=dashed`,
	NodeRegionProjection: `shape=octagon`,
}

var edgeStyles = map[EdgeKind]string{
	EdgeReborrow:               `color=black`,
	EdgeDerefExpansion:         `color=green`,
	EdgeRegionProjectionMember: `color=purple, style=dashed`,
	EdgeAbstraction:            `color=red`,
}

// WriteDOT renders the state as a DOT graph. Old snapshots are drawn grey,
// conditional edges are labelled with their conditions.
func (s *State) WriteDOT(w io.Writer, name string) error {
	if _, err := fmt.Fprintf(w, "digraph %s {\n", strconv.Quote(name)); err != nil {
		return err
	}

	for _, id := range s.Nodes() {
		n := s.arena.NodeAt(id)
		style := nodeStyles[n.Kind]
		if n.IsOld() {
			style += `, color=grey`
		}
		if _, err := fmt.Fprintf(w, "  n%d [label=%s, %s];\n", id, strconv.Quote(n.String()), style); err != nil {
			return err
		}
	}

	for _, id := range s.Edges() {
		e := s.arena.EdgeAt(id)
		label := e.Kind.String()
		if pc := s.edges[id]; !pc.IsUnconditional() {
			label += " if " + pc.String()
		}
		for _, from := range e.Blocked {
			for _, to := range e.BlockedBy {
				_, err := fmt.Fprintf(w, "  n%d -> n%d [label=%s, %s];\n", from, to, strconv.Quote(label), edgeStyles[e.Kind])
				if err != nil {
					return err
				}
			}
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

// WriteNodeLegend renders the legend of node styles.
func WriteNodeLegend(w io.Writer) error {
	if _, err := io.WriteString(w, "digraph node_legend {\n"); err != nil {
		return err
	}
	for k := NodePlace; k <= NodeRegionProjection; k++ {
		if _, err := fmt.Fprintf(w, "  %s [label=%s, %s];\n", strconv.Quote(k.String()), strconv.Quote(k.String()), nodeStyles[k]); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "  \"old place\" [label=\"old place\", shape=rect, color=grey];\n}\n")

	return err
}

// WriteEdgeLegend renders the legend of edge styles.
func WriteEdgeLegend(w io.Writer) error {
	if _, err := io.WriteString(w, "digraph edge_legend {\n  rankdir=LR;\n"); err != nil {
		return err
	}
	for k := EdgeReborrow; k <= EdgeAbstraction; k++ {
		_, err := fmt.Fprintf(w, "  a%d [label=\"\", shape=point];\n  b%d [label=\"\", shape=point];\n  a%d -> b%d [label=%s, %s];\n",
			k, k, k, k, strconv.Quote(k.String()), edgeStyles[k])
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")

	return err
}
