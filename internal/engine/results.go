package engine

import (
	"fmt"

	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/coupling"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/places"
	"github.com/sirkon/pcg/internal/validity"
)

// InstructionResult is what an instruction transfer did.
type InstructionResult struct {
	Location    mir.Location
	Instruction string
	Snapshots   Snapshots
	Actions     PhaseActions
}

// SuccessorResult lists capability changes turning the block exit state
// into the entry state of a successor.
type SuccessorResult struct {
	To      mir.BlockID
	Actions []Action
}

// BlockResult is the analysis outcome of a reached block.
type BlockResult struct {
	Block        mir.BlockID
	Entry        *Domain
	Exit         *Domain
	Iterations   int
	Instructions []InstructionResult
	Successors   []SuccessorResult
}

// Results is the outcome of an analysis.
type Results struct {
	body     *mir.Body
	repacker *places.Repacker
	blocks   []*BlockResult
	reports  []validity.Report
}

// Body returns the analyzed body.
func (r *Results) Body() *mir.Body {
	return r.body
}

// Repacker returns the place repacker of the analyzed body.
func (r *Results) Repacker() *places.Repacker {
	return r.repacker
}

// Blocks returns reached blocks in ascending order.
func (r *Results) Blocks() []mir.BlockID {
	var res []mir.BlockID
	for i, b := range r.blocks {
		if b != nil {
			res = append(res, mir.BlockID(i))
		}
	}

	return res
}

// Block returns the result of a block, false for unreached ones.
func (r *Results) Block(block mir.BlockID) (*BlockResult, bool) {
	if int(block) >= len(r.blocks) || r.blocks[block] == nil {
		return nil, false
	}

	return r.blocks[block], true
}

// Entry returns the fixpoint entry state of a block.
func (r *Results) Entry(block mir.BlockID) (*Domain, bool) {
	b, ok := r.Block(block)
	if !ok {
		return nil, false
	}

	return b.Entry, true
}

// At returns the result of the instruction at the location.
func (r *Results) At(loc mir.Location) (*InstructionResult, bool) {
	b, ok := r.Block(loc.Block)
	if !ok || loc.Statement < 0 || loc.Statement >= len(b.Instructions) {
		return nil, false
	}

	return &b.Instructions[loc.Statement], true
}

// Successors returns successor edge results of a block.
func (r *Results) Successors(block mir.BlockID) []SuccessorResult {
	b, ok := r.Block(block)
	if !ok {
		return nil
	}

	return b.Successors
}

// Iterations returns the total number of block visits done before the
// fixpoint was reached.
func (r *Results) Iterations() int {
	var res int
	for _, b := range r.blocks {
		if b != nil {
			res += b.Iterations
		}
	}

	return res
}

// Reports returns consistency check failures found in warn mode.
func (r *Results) Reports() []validity.Report {
	return r.reports
}

// CapabilitiesAt returns capabilities after the instruction at the
// location.
func (r *Results) CapabilitiesAt(loc mir.Location) (capability.PlaceCapabilities, bool) {
	ir, ok := r.At(loc)
	if !ok {
		return nil, false
	}

	return ir.Snapshots.After.Caps.Capabilities(), true
}

// ReturnCapabilities returns capabilities every return point agrees on.
func (r *Results) ReturnCapabilities() capability.PlaceCapabilities {
	var res capability.PlaceCapabilities
	for _, b := range r.blocks {
		if b == nil || r.body.Blocks[b.Block].Terminator.Kind != mir.TerminatorReturn {
			continue
		}

		caps := b.Exit.Caps.Capabilities()
		if res == nil {
			res = caps
			continue
		}
		res.Join(caps)
	}

	return res
}

// CouplingGraph builds the coupling graph of region projections at the
// entry of a block.
func (r *Results) CouplingGraph(block mir.BlockID, live coupling.LivenessChecker) (*coupling.Graph[borrows.Node], error) {
	entry, ok := r.Entry(block)
	if !ok {
		return nil, fmt.Errorf("block %s is not reached", block)
	}

	c, err := coupling.NewConstructor[borrows.Node](live, block)
	if err != nil {
		return nil, fmt.Errorf("coupling graph of %s: %w", block, err)
	}

	return c.Construct(entry.Borrows.RegionProjectionGraph()), nil
}
