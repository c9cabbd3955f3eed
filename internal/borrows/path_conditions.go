package borrows

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirkon/pcg/internal/mir"
)

// BlockEdge is a control flow edge.
type BlockEdge struct {
	From mir.BlockID
	To   mir.BlockID
}

func (e BlockEdge) Cmp(o BlockEdge) int {
	if e.From != o.From {
		if e.From < o.From {
			return -1
		}
		return 1
	}

	switch {
	case e.To < o.To:
		return -1
	case e.To > o.To:
		return 1
	default:
		return 0
	}
}

func (e BlockEdge) String() string {
	return fmt.Sprintf("%s->%s", e.From, e.To)
}

// PathConditions is a sorted set of control flow edges a borrow graph edge
// was propagated through. An empty set means the edge is unconditional.
type PathConditions []BlockEdge

// IsUnconditional checks if there are no conditions.
func (pc PathConditions) IsUnconditional() bool {
	return len(pc) == 0
}

// With returns conditions extended with e.
func (pc PathConditions) With(e BlockEdge) PathConditions {
	i, found := slices.BinarySearchFunc(pc, e, BlockEdge.Cmp)
	if found {
		return pc
	}

	return slices.Insert(slices.Clone(pc), i, e)
}

// Join merges conditions of an edge present in two states. An unconditional
// side makes the result unconditional.
func (pc PathConditions) Join(other PathConditions) PathConditions {
	if pc.IsUnconditional() || other.IsUnconditional() {
		return nil
	}

	res := slices.Concat(pc, other)
	slices.SortFunc(res, BlockEdge.Cmp)

	return slices.Compact(res)
}

// WithoutIncoming drops conditions on edges incoming into block when all of
// preds are present: every path into the block agrees then.
func (pc PathConditions) WithoutIncoming(block mir.BlockID, preds []mir.BlockID) PathConditions {
	if len(preds) == 0 {
		return pc
	}
	for _, p := range preds {
		if _, found := slices.BinarySearchFunc(pc, BlockEdge{From: p, To: block}, BlockEdge.Cmp); !found {
			return pc
		}
	}

	res := slices.DeleteFunc(slices.Clone(pc), func(e BlockEdge) bool {
		return e.To == block
	})
	if len(res) == 0 {
		return nil
	}

	return res
}

// Equal checks conditions are the same.
func (pc PathConditions) Equal(other PathConditions) bool {
	return slices.Equal(pc, other)
}

func (pc PathConditions) String() string {
	if pc.IsUnconditional() {
		return "*"
	}

	parts := make([]string, len(pc))
	for i, e := range pc {
		parts[i] = e.String()
	}

	return strings.Join(parts, " ")
}
