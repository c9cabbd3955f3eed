// Package validity defines the internal consistency rules of the place
// capability graph engine and the machinery checking them.
//
// Violations are never user errors: the input body is assumed well typed and
// borrow checked, so a failed check means the analysis model and the input
// disagree. Checks run in one of three modes:
//
//   - off: checks are no-ops, the caller proceeds as if they passed;
//   - warn: a failed check is logged, recorded in a Reporter and the caller
//     proceeds with its best effort recovery;
//   - fatal: a failed check panics with *Violation. The analysis driver
//     recovers it at its boundary and returns an error wrapping ErrInvariant.
//
// Input shapes the model does not cover stop the analysis the same way with
// *Unsupported, independent of the mode, since silently skipping them would
// make the computed summary unsound.
//
// Rule numbering scheme:
//
//	001–009  Place algebra and capability frontier
//	010–019  Borrow graph structure
package validity
