package engine

import (
	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/places"
)

// Domain is the analysis state at a program point.
type Domain struct {
	Caps    *capability.Summary
	Borrows *borrows.State
}

// Clone copies the domain.
func (d *Domain) Clone() *Domain {
	return &Domain{
		Caps:    d.Caps.Clone(),
		Borrows: d.Borrows.Clone(),
	}
}

// Equal checks if domains hold the same capabilities and borrows.
func (d *Domain) Equal(o *Domain) bool {
	return d.Caps.Equal(o.Caps) && d.Borrows.Equal(o.Borrows)
}

// Join merges other into d at the entry of block. Edges only kept alive by
// old leaves after the merge are trimmed and their lenders get their
// capabilities back.
func (d *Domain) Join(r *places.Repacker, other *Domain, block mir.BlockID) bool {
	changed := d.Caps.Join(r, other.Caps)
	if d.Borrows.Join(other.Borrows, block) {
		changed = true
	}

	removed := d.Borrows.TrimOldLeaves()
	if len(removed) > 0 {
		restoreLenders(r, d, removed)
		changed = true
	}

	return changed
}

func (d *Domain) String() string {
	res := d.Caps.String()
	if edges := d.Borrows.String(); edges != "" {
		res += "\n" + edges
	}

	return res
}

// restoreLenders gives Exclusive back to current places lent by removed
// reborrows unless something else still borrows from them.
func restoreLenders(r *places.Repacker, d *Domain, removed []borrows.EdgeID) []capability.Op {
	arena := d.Borrows.Arena()

	var ops []capability.Op
	for _, id := range removed {
		e := arena.EdgeAt(id)
		if e.Kind != borrows.EdgeReborrow {
			continue
		}

		lender := arena.NodeAt(e.Blocked[0])
		if lender.Kind != borrows.NodePlace || lender.Place.Old {
			continue
		}
		p := lender.Place.Place
		if !d.Caps.IsAllocated(p.Local()) || len(d.Borrows.ReborrowsBlocking(p)) > 0 {
			continue
		}

		repack, ok := d.Caps.Repack(r, p)
		if !ok {
			continue
		}
		ops = append(ops, repack...)
		if op, changed := d.Caps.Set(p, capability.Exclusive); changed {
			ops = append(ops, op)
		}
	}

	return ops
}
