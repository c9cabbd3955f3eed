package mir

import (
	"fmt"
	"strings"
)

// OperandKind enumerates operand kinds.
type OperandKind int

const (
	operandInvalid OperandKind = iota
	OperandCopy
	OperandMove
	OperandConst
)

// Operand is a value read by an rvalue, a call or a terminator.
type Operand struct {
	Kind  OperandKind
	Place Place

	// Const is a textual constant for OperandConst.
	Const string
}

// CopyOf constructs a copy operand.
func CopyOf(p Place) Operand { return Operand{Kind: OperandCopy, Place: p} }

// MoveOf constructs a move operand.
func MoveOf(p Place) Operand { return Operand{Kind: OperandMove, Place: p} }

// ConstOf constructs a constant operand.
func ConstOf(c string) Operand { return Operand{Kind: OperandConst, Const: c} }

// PlaceOf returns the operand place if the operand reads one.
func (o Operand) PlaceOf() (Place, bool) {
	if o.Kind == OperandCopy || o.Kind == OperandMove {
		return o.Place, true
	}

	return Place{}, false
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandCopy:
		return "copy " + o.Place.String()
	case OperandMove:
		return "move " + o.Place.String()
	case OperandConst:
		return "const " + o.Const
	default:
		return "<invalid operand>"
	}
}

// RvalueKind enumerates rvalue kinds.
type RvalueKind int

const (
	rvalueInvalid RvalueKind = iota
	RvalueUse
	RvalueRef
	RvalueRawPtr
	RvalueAggregate
	RvalueBinaryOp
	RvalueUnaryOp
	RvalueLen
	RvalueDiscriminant
	RvalueCast
	RvalueRepeat
	RvalueCopyForDeref

	// RvalueShallowInitBox is recognized but has no modeled effect.
	RvalueShallowInitBox
)

var rvalueKindNames = map[RvalueKind]string{
	RvalueUse:            "use",
	RvalueRef:            "ref",
	RvalueRawPtr:         "raw",
	RvalueAggregate:      "aggregate",
	RvalueBinaryOp:       "binop",
	RvalueUnaryOp:        "unop",
	RvalueLen:            "len",
	RvalueDiscriminant:   "discriminant",
	RvalueCast:           "cast",
	RvalueRepeat:         "repeat",
	RvalueCopyForDeref:   "deref_copy",
	RvalueShallowInitBox: "shallow_init_box",
}

func (k RvalueKind) String() string {
	v, ok := rvalueKindNames[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// AggregateKind enumerates aggregate constructors.
type AggregateKind int

const (
	aggregateInvalid AggregateKind = iota
	AggregateTuple
	AggregateAdt
	AggregateArray
	AggregateClosure
)

// Rvalue is the right hand side of an assignment.
//
// Operands is used by RvalueUse, RvalueAggregate, RvalueBinaryOp,
// RvalueUnaryOp, RvalueCast, RvalueRepeat and RvalueShallowInitBox. Place is
// used by RvalueRef, RvalueRawPtr, RvalueLen, RvalueDiscriminant and
// RvalueCopyForDeref.
type Rvalue struct {
	Kind     RvalueKind
	Operands []Operand
	Place    Place

	// Region and Mut describe a borrow for RvalueRef, Mut is also used by
	// RvalueRawPtr.
	Region RegionVid
	Mut    Mutability

	// Aggregate is the constructor kind for RvalueAggregate. Variant is an
	// enum variant index for ADT aggregates.
	Aggregate AggregateKind
	Variant   int

	// Op is the operator name of a binary or unary operation.
	Op string
}

// Use constructs a use rvalue.
func Use(o Operand) Rvalue { return Rvalue{Kind: RvalueUse, Operands: []Operand{o}} }

// Borrow constructs a reference creating rvalue.
func Borrow(region RegionVid, mut Mutability, p Place) Rvalue {
	return Rvalue{Kind: RvalueRef, Region: region, Mut: mut, Place: p}
}

func (r Rvalue) String() string {
	ops := func() string {
		parts := make([]string, len(r.Operands))
		for i, o := range r.Operands {
			parts[i] = o.String()
		}
		return strings.Join(parts, ", ")
	}

	switch r.Kind {
	case RvalueUse:
		return ops()
	case RvalueRef:
		if r.Mut == Mut {
			return "&" + r.Region.String() + " mut " + r.Place.String()
		}
		return "&" + r.Region.String() + " " + r.Place.String()
	case RvalueRawPtr:
		if r.Mut == Mut {
			return "&raw mut " + r.Place.String()
		}
		return "&raw const " + r.Place.String()
	case RvalueAggregate:
		switch r.Aggregate {
		case AggregateTuple:
			return "(" + ops() + ")"
		case AggregateArray:
			return "[" + ops() + "]"
		case AggregateClosure:
			return "closure(" + ops() + ")"
		default:
			return fmt.Sprintf("adt@%d(%s)", r.Variant, ops())
		}
	case RvalueBinaryOp, RvalueUnaryOp:
		return r.Op + "(" + ops() + ")"
	case RvalueLen, RvalueDiscriminant, RvalueCopyForDeref:
		return r.Kind.String() + "(" + r.Place.String() + ")"
	default:
		return r.Kind.String() + "(" + ops() + ")"
	}
}
