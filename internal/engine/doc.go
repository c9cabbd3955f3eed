// Package engine runs the place capability graph analysis over a body.
//
// A Domain pairs a capability summary with a borrow graph. The Visitor
// applies an instruction to a domain in four phases: operands are prepared
// and then consumed, the effect is prepared and then applied. The Engine
// iterates block visits over the control flow graph until entry states stop
// changing, then replays every block once more to record a snapshot of the
// domain after each phase together with the actions that produced it.
package engine
