// Package borrows implements the Borrow Graph domain.
//
// Nodes are current places, old snapshots of places taken at the location of
// their latest write, remote places standing for what a caller passed into an
// argument and region projections. Edges are reborrows, dereference
// expansions, region projection memberships and call abstractions.
//
// Nodes and edges are interned by an Arena shared by every state of one
// analysis, a State refers to edges by their integer IDs only. Cloning a state
// copies two maps and joining two states never has to compare structures
// deeper than an ID.
//
// Every edge of a state carries path conditions: the control flow edges it was
// propagated through since the last point every incoming path agreed on it.
package borrows
