package engine

import (
	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

// transfer is a single phase application over a private domain copy.
type transfer struct {
	v       *Visitor
	d       *Domain
	loc     mir.Location
	phase   Phase
	actions []Action
}

func (t *transfer) checker() *validity.PhaseChecker {
	return t.v.check.Phase(validity.ReportTransfer)
}

func (t *transfer) capOps(ops []capability.Op) {
	t.actions = append(t.actions, capabilityActions(ops)...)
}

func (t *transfer) capOp(op capability.Op) {
	t.actions = append(t.actions, capabilityAction(op))
}

func (t *transfer) added(ids ...borrows.EdgeID) {
	for _, id := range ids {
		t.actions = append(t.actions, edgeAction(t.v.arena, id, true))
	}
}

// removed records removed edges and gives capabilities back to places they
// lent.
func (t *transfer) removed(ids []borrows.EdgeID) {
	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		t.actions = append(t.actions, edgeAction(t.v.arena, id, false))
	}
	t.capOps(restoreLenders(t.v.repacker, t.d, ids))
}

func (t *transfer) addEdge(id borrows.EdgeID, ok bool) {
	if ok {
		t.added(id)
	}
}

func (t *transfer) makeOld(p mir.Place) {
	if t.d.Borrows.MakePlaceOld(p) {
		t.actions = append(t.actions, Action{Kind: ActionMakeOld, Place: p})
	}
}

// minimize drops what the graph no longer needs.
func (t *transfer) minimize() {
	t.removed(t.d.Borrows.Minimize())
}

func (t *transfer) trim() {
	t.removed(t.d.Borrows.TrimOldLeaves())
}

func (t *transfer) killLoans(p oracle.Point) {
	for _, l := range t.v.oracle.LoansInvalidatedAt(p) {
		t.removed(t.d.Borrows.KillLoan(l.Reserve, l.Place))
	}
}

func (t *transfer) holds(p mir.Place, want capability.Kind) bool {
	cur, ok := t.d.Caps.Get(p)
	return ok && want.LessEq(cur)
}

// require makes the place tracked exactly with at least the wanted
// capability, unblocking it when it is lent out.
func (t *transfer) require(p mir.Place, want capability.Kind) {
	r := t.v.repacker
	if !t.d.Caps.IsAllocated(p.Local()) {
		t.checker().Assert(false, validity.PCG005MissingCapability, "%s: %s is not allocated", t.loc, p)
		return
	}

	if !r.IsOwned(p) {
		t.added(t.d.Borrows.EnsureExpansionToExactly(r, p, t.loc)...)
	}

	ops, ok := t.d.Caps.Repack(r, p)
	if ok {
		t.capOps(ops)
		if t.holds(p, want) {
			return
		}

		t.removed(t.d.Borrows.Unblock(p))
		ops, ok = t.d.Caps.Repack(r, p)
		t.capOps(ops)
		if ok && t.holds(p, want) {
			return
		}
	}

	// Overwrites never need what was held before.
	if want != capability.Write {
		held, _ := t.d.Caps.Get(p)
		t.checker().Assert(false, validity.PCG005MissingCapability, "%s: %s needs %s, holds %s", t.loc, p, want, held)
	}
	t.capOps(t.d.Caps.Reset(p, want))
}

// weaken lowers the capability of a tracked place.
func (t *transfer) weaken(p mir.Place, to capability.Kind) {
	cur, ok := t.d.Caps.Get(p)
	if !ok {
		return
	}

	t.v.check.Phase(validity.ReportCapability).Assert(
		to.LessEq(cur),
		validity.PCG003CapabilityOrder,
		"%s: cannot weaken %s from %s to %s", t.loc, p, cur, to,
	)
	if op, changed := t.d.Caps.Set(p, to); changed {
		t.capOp(op)
	}
}

// requireOperand prepares an operand read. Moved places get snapshotted.
func (t *transfer) requireOperand(op mir.Operand) {
	switch op.Kind {
	case mir.OperandCopy:
		t.require(op.Place, capability.Read)
	case mir.OperandMove:
		t.require(op.Place, capability.Exclusive)
		t.d.Borrows.SetLatest(op.Place, t.loc)
		t.makeOld(op.Place)
	}
}

func (t *transfer) consumeOperands(ops []mir.Operand) {
	for _, op := range ops {
		if op.Kind == mir.OperandMove {
			t.weaken(op.Place, capability.Write)
		}
	}
}

// prepareTarget makes the place writable.
func (t *transfer) prepareTarget(p mir.Place) {
	t.checker().Assert(
		t.v.repacker.FullCapacity(p),
		validity.PCG005MissingCapability,
		"%s: %s is written behind a shared reference", t.loc, p,
	)
	t.require(p, capability.Write)
}

// finishTarget records a write of the place.
func (t *transfer) finishTarget(p mir.Place) {
	t.d.Borrows.SetLatest(p, t.loc)

	ops, ok := t.d.Caps.Repack(t.v.repacker, p)
	if !ok {
		t.capOps(t.d.Caps.Reset(p, capability.Exclusive))
		return
	}
	t.capOps(ops)
	if op, changed := t.d.Caps.Set(p, capability.Exclusive); changed {
		t.capOp(op)
	}
}

// valueOf returns the node place the instruction reads p from. Places under
// the assignment target were snapshotted before the write.
func (t *transfer) valueOf(p, target mir.Place) borrows.MaybeOldPlace {
	if target.IsStrictPrefixOf(p) {
		return borrows.OldAt(p, t.d.Borrows.GetLatest(p))
	}

	return borrows.Current(p)
}

func (t *transfer) checkConsistency() {
	r := t.v.repacker
	t.d.Caps.CheckFrontier(r, t.v.check.Phase(validity.ReportCapability))

	check := t.v.check.Phase(validity.ReportBorrows)
	if !check.Enabled() {
		return
	}
	arena := t.d.Borrows.Arena()
	for _, id := range t.d.Borrows.Nodes() {
		n := arena.NodeAt(id)
		if !n.HasPlace() || n.Place.Old {
			continue
		}
		check.Assert(
			t.d.Caps.IsAllocated(n.Place.Place.Local()),
			validity.PCG011DanglingEdge,
			"%s %s: %s refers to an unallocated local", t.loc, t.phase, n,
		)
	}
}
