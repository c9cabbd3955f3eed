package mir

import (
	"fmt"
	"strconv"
)

// Instruction is implemented by statements and terminators, the two things
// a transfer function is applied to.
type Instruction interface {
	isInstruction()
}

// Local identifies a local variable of a body. Local 0 is the return place,
// locals 1..ArgCount are the arguments.
type Local uint32

// ReturnLocal is the local holding the return value.
const ReturnLocal Local = 0

func (l Local) String() string {
	return "_" + strconv.Itoa(int(l))
}

// BlockID identifies a basic block.
type BlockID uint32

// StartBlock is the entry block of every body.
const StartBlock BlockID = 0

func (b BlockID) String() string {
	return "bb" + strconv.Itoa(int(b))
}

// Location addresses a statement inside a block. The terminator of a block
// with N statements lives at statement index N.
type Location struct {
	Block     BlockID
	Statement int
}

// StartLocation is the first location of a body.
var StartLocation = Location{}

func (l Location) String() string {
	return fmt.Sprintf("%s[%d]", l.Block, l.Statement)
}

// Cmp orders locations by block and then by statement.
func (l Location) Cmp(other Location) int {
	switch {
	case l.Block < other.Block:
		return -1
	case l.Block > other.Block:
		return 1
	case l.Statement < other.Statement:
		return -1
	case l.Statement > other.Statement:
		return 1
	default:
		return 0
	}
}

// RegionVid is an abstract lifetime region identifier.
type RegionVid uint32

func (r RegionVid) String() string {
	return "'" + strconv.Itoa(int(r))
}

// Mutability of a reference, raw pointer or borrow.
type Mutability int

const (
	Not Mutability = iota
	Mut
)

func (m Mutability) String() string {
	if m == Mut {
		return "mut"
	}

	return "not"
}

// IsMut reports whether m is Mut.
func (m Mutability) IsMut() bool {
	return m == Mut
}
