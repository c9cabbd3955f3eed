package engine

import (
	"fmt"
	"log/slog"

	"golang.org/x/tools/container/intsets"

	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/places"
	"github.com/sirkon/pcg/internal/validity"
)

// Snapshots are domains after each phase of an instruction transfer.
type Snapshots struct {
	BeforeStart *Domain
	BeforeAfter *Domain
	Start       *Domain
	After       *Domain
}

// Of returns the snapshot taken after a phase.
func (s *Snapshots) Of(p Phase) *Domain {
	switch p {
	case PreparingBefore:
		return s.BeforeStart
	case ApplyingBefore:
		return s.BeforeAfter
	case PreparingAfter:
		return s.Start
	case ApplyingAfter:
		return s.After
	default:
		return nil
	}
}

func (s *Snapshots) set(p Phase, d *Domain) {
	switch p {
	case PreparingBefore:
		s.BeforeStart = d
	case ApplyingBefore:
		s.BeforeAfter = d
	case PreparingAfter:
		s.Start = d
	case ApplyingAfter:
		s.After = d
	}
}

// Visitor applies instructions of one body to domains.
type Visitor struct {
	body      *mir.Body
	repacker  *places.Repacker
	oracle    oracle.Oracle
	outlives  []mir.Outlives
	regions   *oracle.RegionGraph
	arena     *borrows.Arena
	check     *validity.Checker
	diverging map[string]struct{}
	reachable *intsets.Sparse
	logger    *slog.Logger
}

// NewVisitor creates a visitor of the body. Calls of functions listed in
// diverging never return, whatever their targets are.
func NewVisitor(body *mir.Body, o oracle.Oracle, check *validity.Checker, diverging []string, logger *slog.Logger) *Visitor {
	if logger == nil {
		logger = slog.Default()
	}

	div := make(map[string]struct{}, len(diverging))
	for _, name := range diverging {
		div[name] = struct{}{}
	}

	outlives := o.OutlivesConstraints()
	return &Visitor{
		body:      body,
		repacker:  places.NewRepacker(body, check),
		oracle:    o,
		outlives:  outlives,
		regions:   oracle.NewRegionGraph(outlives),
		arena:     borrows.NewArena(),
		check:     check,
		diverging: div,
		reachable: body.Reachable(),
		logger:    logger,
	}
}

// Repacker returns the place repacker of the body.
func (v *Visitor) Repacker() *places.Repacker {
	return v.repacker
}

// Body returns the visited body.
func (v *Visitor) Body() *mir.Body {
	return v.body
}

// StartState computes the entry state of the start block: arguments are
// Exclusive, the return place and locals without storage markers are
// Write. Every reference argument gets a reborrow from the remote place the
// caller lent.
func (v *Visitor) StartState() *Domain {
	caps := capability.NewSummary(len(v.body.Locals))
	bs := borrows.NewState(v.arena)

	caps.Allocate(mir.ReturnLocal, capability.Write)
	for _, a := range v.body.Args() {
		caps.Allocate(a, capability.Exclusive)

		ty := v.body.LocalTy(a)
		if !ty.IsRef() {
			continue
		}
		bs.AddReborrow(
			borrows.RemoteNode(a),
			borrows.PlaceNode(borrows.Current(mir.NewPlace(a).Deref())),
			ty.Mut,
			mir.StartLocation,
			ty.Region,
		)
	}
	for _, l := range v.body.AlwaysLiveLocals() {
		caps.Allocate(l, capability.Write)
	}

	return &Domain{Caps: caps, Borrows: bs}
}

// Diverges checks if control never leaves the terminator through its
// targets.
func (v *Visitor) Diverges(t *mir.Terminator) bool {
	if t.Kind != mir.TerminatorCall {
		return false
	}
	if t.Call.Target == nil {
		return true
	}
	_, ok := v.diverging[t.Call.Func]

	return ok
}

// Successors returns blocks control flows to from the block.
func (v *Visitor) Successors(block mir.BlockID) []mir.BlockID {
	if v.Diverges(&v.body.Blocks[block].Terminator) {
		return nil
	}

	return v.body.Successors(block)
}

// Predecessors returns reachable blocks control flows into the block from.
func (v *Visitor) Predecessors(block mir.BlockID) []mir.BlockID {
	var res []mir.BlockID
	for _, p := range v.body.Predecessors(block) {
		if v.reachable.Has(int(p)) && !v.Diverges(&v.body.Blocks[p].Terminator) {
			res = append(res, p)
		}
	}

	return res
}

// Apply runs one phase of the instruction transfer over a copy of d.
func (v *Visitor) Apply(d *Domain, instr mir.Instruction, loc mir.Location, phase Phase) (res *Domain, actions []Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, actions = nil, nil
			err = fmt.Errorf("%s %s: %w", loc, phase, validity.Recover(r))
		}
	}()

	t := &transfer{
		v:     v,
		d:     d.Clone(),
		loc:   loc,
		phase: phase,
	}
	switch i := instr.(type) {
	case *mir.Statement:
		t.statement(i)
	case *mir.Terminator:
		t.terminator(i)
	default:
		return nil, nil, fmt.Errorf("%s: unknown instruction %T", loc, instr)
	}
	t.checkConsistency()

	return t.d, t.actions, nil
}

// Eval runs every phase of the instruction transfer starting from d.
func (v *Visitor) Eval(d *Domain, instr mir.Instruction, loc mir.Location) (Snapshots, PhaseActions, error) {
	var (
		snaps Snapshots
		acts  PhaseActions
	)

	cur := d
	for _, phase := range Phases {
		next, actions, err := v.Apply(cur, instr, loc, phase)
		if err != nil {
			return Snapshots{}, PhaseActions{}, err
		}
		snaps.set(phase, next)
		acts.set(phase, actions)
		cur = next
	}

	return snaps, acts, nil
}

// EvalBlock runs every instruction of the block starting from the entry
// state and returns the state at the block exit.
func (v *Visitor) EvalBlock(entry *Domain, block mir.BlockID) (*Domain, error) {
	blk := &v.body.Blocks[block]

	cur := entry
	for i := range blk.Statements {
		snaps, _, err := v.Eval(cur, &blk.Statements[i], mir.Location{Block: block, Statement: i})
		if err != nil {
			return nil, err
		}
		cur = snaps.After
	}

	snaps, _, err := v.Eval(cur, &blk.Terminator, v.body.TerminatorLocation(block))
	if err != nil {
		return nil, err
	}

	return snaps.After, nil
}
