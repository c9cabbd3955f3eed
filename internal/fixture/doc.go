// Package fixture loads analysis inputs written by hand: a function body,
// region inference facts and, optionally, what the analysis should find.
//
// A fixture is a YAML document. Instructions, types and facts are written
// in a compact text syntax close to how the engine prints them:
//
//	name: borrow_and_write
//	types:
//	  - struct S{i32, i32}
//	  - enum Opt{None, Some(i32)}
//	functions:
//	  identity: fn(&'3 mut S) -> &'3 mut S
//	locals:            # _0, _1, ... in order
//	  - "_0: ()"
//	  - "t: S"
//	  - "y: &'1 mut S"
//	args: 0
//	blocks:
//	  - statements:
//	      - StorageLive(_1)
//	      - _1 = adt@0(const 1, const 2)
//	      - _2 = &'1 mut _1
//	      - _2.*.0 = const 5
//	    terminator: return
//	facts:
//	  outlives: ["'1: '2"]
//	  loans: ["L0: &'1 mut _1 at bb0[2]"]
//	  invalidated: ["start(bb0[3]): L0"]
//	  live: ["start(bb0[0]): '1, '2"]
//	expect:
//	  after:
//	    bb0[3]: "_1: E"
//	  return: "_0: W, _1: E"
//	  reports: [PCG005]
//
// Expectations may also list blocks the analysis must not reach with
// unreached: [bbN, ...].
//
// Places are a local followed by projections: .* for a dereference, .N for
// a field, [_N] for an index, [N of M] and [-N of M] for constant indices,
// [A..B] and [A..-B] for subslices and @N for a downcast.
//
// Syntax errors carry the YAML line and column of the offending value plus
// the offset inside it.
package fixture
