package engine

import (
	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

func (t *transfer) statement(s *mir.Statement) {
	switch t.phase {
	case PreparingBefore:
		t.minimize()
		t.killLoans(oracle.StartOf(t.loc))
		switch s.Kind {
		case mir.StatementAssign:
			t.prepareRvalue(&s.Rvalue)
			if len(t.v.repacker.Regions(s.Place)) > 0 {
				t.makeOld(s.Place)
			}
		case mir.StatementFakeRead:
			t.require(s.Place, capability.Read)
		}

	case ApplyingBefore:
		t.killLoans(oracle.MidOf(t.loc))
		if s.Kind == mir.StatementAssign {
			t.consumeOperands(s.Rvalue.Operands)
		}

	case PreparingAfter:
		switch s.Kind {
		case mir.StatementStorageDead:
			t.makeOld(mir.NewPlace(s.Local))
			t.trim()
		case mir.StatementAssign:
			t.prepareTarget(s.Place)
		}

	case ApplyingAfter:
		switch s.Kind {
		case mir.StatementStorageLive:
			t.capOp(t.d.Caps.Allocate(s.Local, capability.Write))
		case mir.StatementStorageDead:
			t.capOp(t.d.Caps.Deallocate(s.Local))
		case mir.StatementAssign:
			t.assign(s.Place, &s.Rvalue)
		}
		t.trim()
	}
}

func (t *transfer) prepareRvalue(rv *mir.Rvalue) {
	switch rv.Kind {
	case mir.RvalueRef, mir.RvalueRawPtr:
		want := capability.Read
		if rv.Mut == mir.Mut {
			want = capability.Exclusive
		}
		t.require(rv.Place, want)
	case mir.RvalueLen, mir.RvalueDiscriminant, mir.RvalueCopyForDeref:
		t.require(rv.Place, capability.Read)
	case mir.RvalueAggregate:
		if rv.Aggregate == mir.AggregateClosure {
			validity.Unimplemented("%s: closure aggregates", t.loc)
		}
		fallthrough
	default:
		for _, op := range rv.Operands {
			t.requireOperand(op)
		}
	}
}

func (t *transfer) assign(target mir.Place, rv *mir.Rvalue) {
	r := t.v.repacker
	bs := t.d.Borrows

	switch rv.Kind {
	case mir.RvalueRef:
		if !t.v.check.Phase(validity.ReportBorrows).Assert(
			r.IsRef(target),
			validity.PCG010BorrowTypeMismatch,
			"%s: borrow of %s assigned to %s of type %s", t.loc, rv.Place, target, r.Ty(target).Ty,
		) {
			break
		}

		lender := t.valueOf(rv.Place, target)
		if !lender.Old {
			if rv.Mut == mir.Mut {
				t.weaken(rv.Place, capability.None)
			} else {
				t.weaken(rv.Place, capability.Read)
			}
		}
		t.addEdge(bs.AddReborrow(
			borrows.PlaceNode(lender),
			borrows.PlaceNode(borrows.Current(target.Deref())),
			rv.Mut,
			t.loc,
			rv.Region,
		))

	case mir.RvalueUse, mir.RvalueCast:
		t.transferValue(rv.Operands[0], target)

	case mir.RvalueCopyForDeref:
		t.transferValue(mir.CopyOf(rv.Place), target)

	case mir.RvalueAggregate:
		t.aggregate(target, rv)
	}

	t.finishTarget(target)
}

// transferValue moves borrows held by the operand into the place.
func (t *transfer) transferValue(op mir.Operand, target mir.Place) {
	p, ok := op.PlaceOf()
	if !ok {
		return
	}

	r := t.v.repacker
	src := r.Ty(p).Ty
	switch op.Kind {
	case mir.OperandCopy:
		dst := r.Ty(target).Ty
		if !src.IsRef() || !dst.IsRef() {
			return
		}

		t.addEdge(t.d.Borrows.AddReborrow(
			borrows.PlaceNode(t.valueOf(p.Deref(), target)),
			borrows.PlaceNode(borrows.Current(target.Deref())),
			src.Mut,
			t.loc,
			dst.Region,
		))

	case mir.OperandMove:
		t.moveInto(p, target)
	}
}

// moveInto redirects edges of the snapshot of the moved place to the
// target.
func (t *transfer) moveInto(p, target mir.Place) {
	r := t.v.repacker
	bs := t.d.Borrows

	src, dst := r.Ty(p).Ty, r.Ty(target).Ty
	if !mir.SameShape(src, dst) {
		return
	}

	old := borrows.OldAt(p, bs.GetLatest(p))
	to := borrows.Current(target)
	if src.IsRef() {
		t.removed(bs.DeleteDescendantsOf(borrows.PlaceNode(old)))
		bs.ChangePCSElem(borrows.PlaceNode(old.Project(mir.DerefElem())), borrows.PlaceNode(to.Project(mir.DerefElem())))
	}

	dstRegions := dst.Regions()
	for i, rg := range src.Regions() {
		if i >= len(dstRegions) {
			break
		}
		bs.ChangePCSElem(
			borrows.RegionProjectionNode(old, i, rg),
			borrows.RegionProjectionNode(to, i, dstRegions[i]),
		)
	}
}

// aggregate moves operands into fields of the target and relates operand
// places with region projections of the target their regions outlive.
func (t *transfer) aggregate(target mir.Place, rv *mir.Rvalue) {
	r := t.v.repacker
	bs := t.d.Borrows

	base := target
	ty := r.Ty(target).Ty
	if rv.Aggregate == mir.AggregateAdt && ty.Kind == mir.TyEnum {
		base = target.Project(mir.DowncastElem(rv.Variant))
	}
	targetRegions := ty.Regions()

	for i, op := range rv.Operands {
		p, ok := op.PlaceOf()
		if !ok {
			continue
		}
		regions := r.Regions(p)
		if len(regions) == 0 {
			continue
		}

		field := base.Field(i)
		if rv.Aggregate == mir.AggregateArray {
			field = base.Project(mir.ConstantIndexElem(i, len(rv.Operands), false))
		}
		t.transferValue(op, field)

		member := borrows.Current(p)
		if op.Kind == mir.OperandMove {
			member = borrows.OldAt(p, bs.GetLatest(p))
		}
		for _, rg := range regions {
			for k, tr := range targetRegions {
				if !t.v.regions.Outlives(rg, tr) {
					continue
				}
				t.addEdge(bs.AddRegionProjectionMember(
					member,
					borrows.RegionProjectionNode(borrows.Current(target), k, tr),
					borrows.PlaceIsRegionInput,
					t.loc,
				))
			}
		}
	}
}
