package mir

import (
	"fmt"
	"strings"
)

// TerminatorKind enumerates terminator kinds.
type TerminatorKind int

const (
	terminatorInvalid TerminatorKind = iota
	TerminatorGoto
	TerminatorSwitchInt
	TerminatorReturn
	TerminatorUnreachable
	TerminatorCall
	TerminatorDrop
	TerminatorAssert

	// TerminatorYield belongs to coroutine bodies which are not modeled.
	TerminatorYield
)

// Terminator ends a block.
type Terminator struct {
	Kind TerminatorKind

	// Targets are successor blocks for goto, switch, drop, assert and yield.
	Targets []BlockID

	// Operand is the switch discriminant or the asserted condition.
	Operand Operand

	// Place is the dropped place.
	Place Place

	Call *Call
}

func (*Terminator) isInstruction() {}

// Call describes a function call terminator.
type Call struct {
	Func        string
	Sig         *FnSig
	Args        []Operand
	Destination Place

	// Target is nil for calls that never return.
	Target *BlockID
}

// Outlives is a declared `Sup: Sub` bound.
type Outlives struct {
	Sup RegionVid
	Sub RegionVid
}

func (o Outlives) String() string {
	return o.Sup.String() + ": " + o.Sub.String()
}

// FnSig is a function signature with late-bound regions already liberated.
type FnSig struct {
	Inputs []*Ty
	Output *Ty
	Bounds []Outlives
}

func (s *FnSig) String() string {
	parts := make([]string, len(s.Inputs))
	for i, in := range s.Inputs {
		parts[i] = in.String()
	}
	res := "fn(" + strings.Join(parts, ", ") + ") -> " + s.Output.String()
	if len(s.Bounds) > 0 {
		bounds := make([]string, len(s.Bounds))
		for i, b := range s.Bounds {
			bounds[i] = b.String()
		}
		res += " where " + strings.Join(bounds, ", ")
	}

	return res
}

// Successors returns blocks control may flow to. Unwind edges are not
// modeled.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TerminatorGoto, TerminatorSwitchInt, TerminatorDrop, TerminatorAssert, TerminatorYield:
		return t.Targets
	case TerminatorCall:
		if t.Call.Target == nil {
			return nil
		}
		return []BlockID{*t.Call.Target}
	default:
		return nil
	}
}

func (t *Terminator) String() string {
	targets := func() string {
		parts := make([]string, len(t.Targets))
		for i, b := range t.Targets {
			parts[i] = b.String()
		}
		return strings.Join(parts, ", ")
	}

	switch t.Kind {
	case TerminatorGoto:
		return "goto " + targets()
	case TerminatorSwitchInt:
		return "switch " + t.Operand.String() + " -> " + targets()
	case TerminatorReturn:
		return "return"
	case TerminatorUnreachable:
		return "unreachable"
	case TerminatorDrop:
		return "drop " + t.Place.String() + " -> " + targets()
	case TerminatorAssert:
		return "assert " + t.Operand.String() + " -> " + targets()
	case TerminatorYield:
		return "yield -> " + targets()
	case TerminatorCall:
		args := make([]string, len(t.Call.Args))
		for i, a := range t.Call.Args {
			args[i] = a.String()
		}
		res := t.Call.Destination.String() + " = " + t.Call.Func + "(" + strings.Join(args, ", ") + ")"
		if t.Call.Target != nil {
			res += " -> " + t.Call.Target.String()
		}
		return res
	default:
		return fmt.Sprintf("invalid-terminator(%d)", t.Kind)
	}
}
