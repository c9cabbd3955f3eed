package mir

import (
	"errors"
	"fmt"
)

// ErrMalformedBody is returned by Validate for bodies referring to missing
// blocks or locals.
var ErrMalformedBody = errors.New("malformed body")

// LocalDecl declares a local.
type LocalDecl struct {
	Name string
	Ty   *Ty
}

// Block is a basic block.
type Block struct {
	Statements []Statement
	Terminator Terminator
}

// Body is a function body.
type Body struct {
	Name     string
	Locals   []LocalDecl
	ArgCount int
	Blocks   []Block

	preds [][]BlockID
}

// LocalTy returns the declared type of a local.
func (b *Body) LocalTy(l Local) *Ty {
	return b.Locals[l].Ty
}

// LocalName returns a human readable local name, the declared one if present.
func (b *Body) LocalName(l Local) string {
	if int(l) < len(b.Locals) && b.Locals[l].Name != "" {
		return b.Locals[l].Name
	}

	return l.String()
}

// Args returns argument locals.
func (b *Body) Args() []Local {
	res := make([]Local, b.ArgCount)
	for i := range res {
		res[i] = Local(i + 1)
	}

	return res
}

// IsArg reports whether the local is an argument.
func (b *Body) IsArg(l Local) bool {
	return l >= 1 && int(l) <= b.ArgCount
}

// Instruction returns the instruction at the given location.
func (b *Body) Instruction(loc Location) (Instruction, bool) {
	if int(loc.Block) >= len(b.Blocks) {
		return nil, false
	}

	blk := &b.Blocks[loc.Block]
	switch {
	case loc.Statement < len(blk.Statements):
		return &blk.Statements[loc.Statement], true
	case loc.Statement == len(blk.Statements):
		return &blk.Terminator, true
	default:
		return nil, false
	}
}

// TerminatorLocation returns the location of the block terminator.
func (b *Body) TerminatorLocation(block BlockID) Location {
	return Location{Block: block, Statement: len(b.Blocks[block].Statements)}
}

// Successors returns successors of a block.
func (b *Body) Successors(block BlockID) []BlockID {
	return b.Blocks[block].Terminator.Successors()
}

// Predecessors returns predecessors of a block, each listed once.
func (b *Body) Predecessors(block BlockID) []BlockID {
	if b.preds == nil {
		b.preds = make([][]BlockID, len(b.Blocks))
		for i := range b.Blocks {
			from := BlockID(i)
			seen := map[BlockID]struct{}{}
			for _, to := range b.Successors(from) {
				if _, ok := seen[to]; ok {
					continue
				}
				seen[to] = struct{}{}
				b.preds[to] = append(b.preds[to], from)
			}
		}
	}

	return b.preds[block]
}

// AlwaysLiveLocals returns non-argument locals that are never subject of
// storage statements. The return local is not included.
func (b *Body) AlwaysLiveLocals() []Local {
	marked := map[Local]struct{}{}
	for _, blk := range b.Blocks {
		for _, s := range blk.Statements {
			if s.Kind == StatementStorageLive || s.Kind == StatementStorageDead {
				marked[s.Local] = struct{}{}
			}
		}
	}

	var res []Local
	for i := b.ArgCount + 1; i < len(b.Locals); i++ {
		if _, ok := marked[Local(i)]; !ok {
			res = append(res, Local(i))
		}
	}

	return res
}

// Validate checks references to blocks and locals.
func (b *Body) Validate() error {
	if len(b.Blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrMalformedBody)
	}
	if b.ArgCount >= len(b.Locals) {
		return fmt.Errorf("%w: %d arguments for %d locals", ErrMalformedBody, b.ArgCount, len(b.Locals))
	}
	for i, l := range b.Locals {
		if l.Ty == nil {
			return fmt.Errorf("%w: local %s has no type", ErrMalformedBody, Local(i))
		}
	}

	checkPlace := func(loc Location, p Place) error {
		if int(p.Local()) >= len(b.Locals) {
			return fmt.Errorf("%w: %s: unknown local %s", ErrMalformedBody, loc, p.Local())
		}
		for _, e := range p.Projection() {
			if e.Kind == ElemIndex && e.Index >= len(b.Locals) {
				return fmt.Errorf("%w: %s: unknown index local %s", ErrMalformedBody, loc, Local(e.Index))
			}
		}
		return nil
	}
	checkOperands := func(loc Location, ops []Operand) error {
		for _, o := range ops {
			if p, ok := o.PlaceOf(); ok {
				if err := checkPlace(loc, p); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for i, blk := range b.Blocks {
		for j, s := range blk.Statements {
			loc := Location{Block: BlockID(i), Statement: j}
			switch s.Kind {
			case StatementAssign:
				if err := checkPlace(loc, s.Place); err != nil {
					return err
				}
				if err := checkOperands(loc, s.Rvalue.Operands); err != nil {
					return err
				}
				switch s.Rvalue.Kind {
				case RvalueRef, RvalueRawPtr, RvalueLen, RvalueDiscriminant, RvalueCopyForDeref:
					if err := checkPlace(loc, s.Rvalue.Place); err != nil {
						return err
					}
				}
			case StatementFakeRead:
				if err := checkPlace(loc, s.Place); err != nil {
					return err
				}
			case StatementStorageLive, StatementStorageDead:
				if int(s.Local) >= len(b.Locals) {
					return fmt.Errorf("%w: %s: unknown local %s", ErrMalformedBody, loc, s.Local)
				}
			}
		}

		loc := b.TerminatorLocation(BlockID(i))
		t := &blk.Terminator
		if t.Kind == TerminatorCall && t.Call == nil {
			return fmt.Errorf("%w: %s: call without call data", ErrMalformedBody, loc)
		}
		for _, s := range t.Successors() {
			if int(s) >= len(b.Blocks) {
				return fmt.Errorf("%w: %s: unknown target %s", ErrMalformedBody, loc, s)
			}
		}
		if t.Kind == TerminatorCall {
			if err := checkPlace(loc, t.Call.Destination); err != nil {
				return err
			}
			if err := checkOperands(loc, t.Call.Args); err != nil {
				return err
			}
			if t.Call.Sig != nil && len(t.Call.Sig.Inputs) != len(t.Call.Args) {
				return fmt.Errorf(
					"%w: %s: %s takes %d arguments, got %d",
					ErrMalformedBody, loc, t.Call.Func, len(t.Call.Sig.Inputs), len(t.Call.Args),
				)
			}
		}
	}

	return nil
}
