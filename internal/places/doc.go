// Package places implements the place algebra: ordering of places, common
// prefixes, projection types, expansion of a place into its immediate
// sub-places and the inverse collapse.
//
// Expansion is described in terms of a minuend and a subtrahend. Expanding
// x.f towards x.f.g.h unrolls every level on the way and returns two things:
// the chain of expanded places (x.f then x.f.g) and the siblings produced at
// every level except those lying on the path to the target. The siblings
// together with the target cover exactly what the minuend covered.
//
// Collapse walks the same structure backwards: given a guide place and a set
// of places below it, it finds the expansions that would have produced the
// set and returns them innermost first, consuming the set.
package places
