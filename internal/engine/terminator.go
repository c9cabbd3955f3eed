package engine

import (
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

func (t *transfer) terminator(term *mir.Terminator) {
	if term.Kind == mir.TerminatorYield {
		validity.Unimplemented("%s: coroutine yield", t.loc)
	}

	switch t.phase {
	case PreparingBefore:
		t.minimize()
		t.killLoans(oracle.StartOf(t.loc))
		switch term.Kind {
		case mir.TerminatorCall:
			for _, arg := range term.Call.Args {
				t.requireOperand(arg)
			}
		case mir.TerminatorSwitchInt, mir.TerminatorAssert:
			t.requireOperand(term.Operand)
		case mir.TerminatorDrop:
			t.require(term.Place, capability.Write)
		case mir.TerminatorReturn:
			ret := mir.NewPlace(mir.ReturnLocal)
			if !t.v.body.LocalTy(mir.ReturnLocal).IsUnit() {
				t.require(ret, capability.Exclusive)
			}
		}

	case ApplyingBefore:
		t.killLoans(oracle.MidOf(t.loc))
		switch term.Kind {
		case mir.TerminatorCall:
			t.consumeOperands(term.Call.Args)
		case mir.TerminatorSwitchInt, mir.TerminatorAssert:
			t.consumeOperands([]mir.Operand{term.Operand})
		}

	case PreparingAfter:
		switch term.Kind {
		case mir.TerminatorCall:
			if !t.v.Diverges(term) {
				t.prepareTarget(term.Call.Destination)
			}
		case mir.TerminatorDrop:
			t.makeOld(term.Place)
			t.trim()
		}

	case ApplyingAfter:
		switch term.Kind {
		case mir.TerminatorCall:
			if !t.v.Diverges(term) {
				t.callAbstraction(term.Call)
				t.finishTarget(term.Call.Destination)
			}
		case mir.TerminatorDrop:
			t.weaken(term.Place, capability.Write)
		}
		t.trim()
	}
}
