// Package capability implements the capability lattice and the Capability
// Summary domain.
//
// A capability is a permission held over a place: None, Read, Write or
// Exclusive. The order is partial: None is below everything, Exclusive is
// above everything, Read and Write are incomparable. The meet of two
// incomparable capabilities is not defined, code joining such capabilities
// drops the entry instead and lets the next instruction needing the place
// re-establish it.
//
// A Summary holds one entry per local of a body. An unallocated local has no
// places. An allocated local holds a partition of its memory: a map from
// tracked places to capabilities where no key is a prefix of another one.
// The partition is changed by expanding a place into its children and by
// collapsing children back, both driven by the place algebra of package
// places, and by joining with a summary coming from another control flow
// path.
package capability
