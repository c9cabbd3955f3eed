// Package coupling builds coupling graphs: graphs over live region
// projections telling which loans must be released together.
//
// The input is the region projection graph of a finished borrow graph. Old
// and dead region projections are transparent, their predecessors get
// connected with their successors directly, so only live region projections
// remain.
package coupling
