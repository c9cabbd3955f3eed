package mir

import (
	"golang.org/x/tools/container/intsets"
)

// Dominators maps every reachable block to the set of blocks dominating it.
type Dominators struct {
	dom []*intsets.Sparse
}

// Dominators computes dominator sets with the classic iterative algorithm.
// Unreachable blocks get empty sets.
func (b *Body) Dominators() *Dominators {
	n := len(b.Blocks)
	reachable := b.Reachable()

	dom := make([]*intsets.Sparse, n)
	for i := range dom {
		dom[i] = new(intsets.Sparse)
		if i == int(StartBlock) {
			dom[i].Insert(i)
			continue
		}
		if reachable.Has(i) {
			dom[i].Copy(reachable)
		}
	}

	for changed := true; changed; {
		changed = false
		for i := 1; i < n; i++ {
			if !reachable.Has(i) {
				continue
			}

			next := new(intsets.Sparse)
			first := true
			for _, p := range b.Predecessors(BlockID(i)) {
				if !reachable.Has(int(p)) {
					continue
				}
				if first {
					next.Copy(dom[p])
					first = false
					continue
				}
				next.IntersectionWith(dom[p])
			}
			next.Insert(i)

			if !next.Equals(dom[i]) {
				dom[i] = next
				changed = true
			}
		}
	}

	return &Dominators{dom: dom}
}

// Dominates reports whether a dominates b.
func (d *Dominators) Dominates(a, b BlockID) bool {
	return d.dom[b].Has(int(a))
}

// Reachable returns blocks reachable from the start block.
func (b *Body) Reachable() *intsets.Sparse {
	var res intsets.Sparse
	stack := []BlockID{StartBlock}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !res.Insert(int(cur)) {
			continue
		}
		stack = append(stack, b.Successors(cur)...)
	}

	return &res
}

// IsBackEdge reports whether the edge from -> to is a back edge.
func (b *Body) IsBackEdge(dom *Dominators, from, to BlockID) bool {
	if !dom.Dominates(to, from) {
		return false
	}
	for _, s := range b.Successors(from) {
		if s == to {
			return true
		}
	}

	return false
}

// LoopBlocks returns all blocks of the natural loop of the back edge
// source -> header, the header included.
func (b *Body) LoopBlocks(header, source BlockID) *intsets.Sparse {
	var res intsets.Sparse
	stack := []BlockID{source}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !res.Insert(int(cur)) {
			continue
		}
		for _, p := range b.Predecessors(cur) {
			if p != header {
				stack = append(stack, p)
			}
		}
	}
	res.Insert(int(header))

	return &res
}

// LoopExitBlocks returns blocks outside the loop reachable by one edge from
// inside it.
func (b *Body) LoopExitBlocks(loop *intsets.Sparse) []BlockID {
	var exits intsets.Sparse
	for _, i := range loop.AppendTo(nil) {
		for _, s := range b.Successors(BlockID(i)) {
			if !loop.Has(int(s)) {
				exits.Insert(int(s))
			}
		}
	}

	var res []BlockID
	for _, i := range exits.AppendTo(nil) {
		res = append(res, BlockID(i))
	}

	return res
}

// LoopHeads returns headers of all back edges in ascending order.
func (b *Body) LoopHeads() []BlockID {
	dom := b.Dominators()
	var heads intsets.Sparse
	for i := range b.Blocks {
		for _, s := range b.Successors(BlockID(i)) {
			if b.IsBackEdge(dom, BlockID(i), s) {
				heads.Insert(int(s))
			}
		}
	}

	var res []BlockID
	for _, i := range heads.AppendTo(nil) {
		res = append(res, BlockID(i))
	}

	return res
}
