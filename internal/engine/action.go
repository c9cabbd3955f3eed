package engine

import (
	"fmt"

	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
)

// ActionKind enumerates recorded domain changes.
type ActionKind int

const (
	actionInvalid ActionKind = iota
	ActionAddReborrow
	ActionRemoveReborrow
	ActionAddEdge
	ActionRemoveEdge
	ActionExpandPlace
	ActionCollapsePlaces
	ActionWeaken
	ActionRestoreCapability
	ActionAllocate
	ActionDeallocate
	ActionAddAbstraction
	ActionMakeOld
)

var actionKindNames = map[ActionKind]string{
	ActionAddReborrow:       "add_reborrow",
	ActionRemoveReborrow:    "remove_reborrow",
	ActionAddEdge:           "add_edge",
	ActionRemoveEdge:        "remove_edge",
	ActionExpandPlace:       "expand",
	ActionCollapsePlaces:    "collapse",
	ActionWeaken:            "weaken",
	ActionRestoreCapability: "restore",
	ActionAllocate:          "allocate",
	ActionDeallocate:        "deallocate",
	ActionAddAbstraction:    "add_abstraction",
	ActionMakeOld:           "make_old",
}

func (k ActionKind) String() string {
	v, ok := actionKindNames[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// MarshalText for serializing dumps.
func (k ActionKind) MarshalText() ([]byte, error) {
	v, ok := actionKindNames[k]
	if !ok {
		return nil, fmt.Errorf("invalid action kind %d", k)
	}

	return []byte(v), nil
}

// Action is a single recorded change of a domain.
//
// Capability actions use Place, Target, From and To the way capability.Op
// does. Borrow graph actions render the edge into Edge.
type Action struct {
	Kind   ActionKind
	Place  mir.Place
	Target mir.Place
	From   capability.Kind
	To     capability.Kind
	Edge   string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionExpandPlace:
		if a.Edge != "" {
			return "expand " + a.Edge
		}
		return fmt.Sprintf("expand %s -> %s", a.Place, a.Target)
	case ActionCollapsePlaces:
		return fmt.Sprintf("collapse %s -> %s", a.Place, a.Target)
	case ActionWeaken, ActionRestoreCapability:
		return fmt.Sprintf("%s %s %s -> %s", a.Kind, a.Place, a.From.Short(), a.To.Short())
	case ActionAllocate:
		return fmt.Sprintf("allocate %s %s", a.Place, a.To.Short())
	case ActionDeallocate, ActionMakeOld:
		return a.Kind.String() + " " + a.Place.String()
	default:
		return a.Kind.String() + " " + a.Edge
	}
}

// PhaseActions are actions of an instruction transfer grouped by phase.
type PhaseActions struct {
	PreparingBefore []Action
	ApplyingBefore  []Action
	PreparingAfter  []Action
	ApplyingAfter   []Action
}

// Of returns actions of a phase.
func (a *PhaseActions) Of(p Phase) []Action {
	switch p {
	case PreparingBefore:
		return a.PreparingBefore
	case ApplyingBefore:
		return a.ApplyingBefore
	case PreparingAfter:
		return a.PreparingAfter
	case ApplyingAfter:
		return a.ApplyingAfter
	default:
		return nil
	}
}

func (a *PhaseActions) set(p Phase, acts []Action) {
	switch p {
	case PreparingBefore:
		a.PreparingBefore = acts
	case ApplyingBefore:
		a.ApplyingBefore = acts
	case PreparingAfter:
		a.PreparingAfter = acts
	case ApplyingAfter:
		a.ApplyingAfter = acts
	}
}

func capabilityAction(op capability.Op) Action {
	a := Action{
		Place:  op.Base,
		Target: op.Target,
		From:   op.From,
		To:     op.To,
	}
	switch op.Kind {
	case capability.OpExpand:
		a.Kind = ActionExpandPlace
	case capability.OpCollapse:
		a.Kind = ActionCollapsePlaces
	case capability.OpWeaken:
		a.Kind = ActionWeaken
	case capability.OpRestore:
		a.Kind = ActionRestoreCapability
	case capability.OpAllocate:
		a.Kind = ActionAllocate
	case capability.OpDeallocate:
		a.Kind = ActionDeallocate
	}

	return a
}

func capabilityActions(ops []capability.Op) []Action {
	res := make([]Action, 0, len(ops))
	for _, op := range ops {
		res = append(res, capabilityAction(op))
	}

	return res
}

func edgeAction(arena *borrows.Arena, id borrows.EdgeID, added bool) Action {
	e := arena.EdgeAt(id)
	a := Action{Edge: arena.EdgeString(id)}
	switch {
	case e.Kind == borrows.EdgeReborrow && added:
		a.Kind = ActionAddReborrow
	case e.Kind == borrows.EdgeReborrow:
		a.Kind = ActionRemoveReborrow
	case e.Kind == borrows.EdgeAbstraction && added:
		a.Kind = ActionAddAbstraction
	case e.Kind == borrows.EdgeDerefExpansion && added:
		a.Kind = ActionExpandPlace
	case added:
		a.Kind = ActionAddEdge
	default:
		a.Kind = ActionRemoveEdge
	}

	return a
}
