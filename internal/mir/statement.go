package mir

import (
	"fmt"
)

var (
	_ Instruction = new(Statement)
	_ Instruction = new(Terminator)
)

// StatementKind enumerates statement kinds.
type StatementKind int

const (
	statementInvalid StatementKind = iota
	StatementAssign
	StatementStorageLive
	StatementStorageDead
	StatementFakeRead
	StatementNop
)

// Statement is a non-terminating instruction of a block.
type Statement struct {
	Kind StatementKind

	// Place is the assignment target or the place read by a fake read.
	Place  Place
	Rvalue Rvalue

	// Local is the subject of storage statements.
	Local Local
}

func (*Statement) isInstruction() {}

// Assign constructs an assignment.
func Assign(target Place, rv Rvalue) Statement {
	return Statement{Kind: StatementAssign, Place: target, Rvalue: rv}
}

// StorageLive constructs a storage-live marker.
func StorageLive(l Local) Statement { return Statement{Kind: StatementStorageLive, Local: l} }

// StorageDead constructs a storage-dead marker.
func StorageDead(l Local) Statement { return Statement{Kind: StatementStorageDead, Local: l} }

// FakeRead constructs a fake read of a place.
func FakeRead(p Place) Statement { return Statement{Kind: StatementFakeRead, Place: p} }

func (s *Statement) String() string {
	switch s.Kind {
	case StatementAssign:
		return s.Place.String() + " = " + s.Rvalue.String()
	case StatementStorageLive:
		return "StorageLive(" + s.Local.String() + ")"
	case StatementStorageDead:
		return "StorageDead(" + s.Local.String() + ")"
	case StatementFakeRead:
		return "FakeRead(" + s.Place.String() + ")"
	case StatementNop:
		return "nop"
	default:
		return fmt.Sprintf("invalid-statement(%d)", s.Kind)
	}
}
