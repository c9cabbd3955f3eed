package engine

import (
	"github.com/sirkon/pcg/internal/borrows"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/oracle"
	"github.com/sirkon/pcg/internal/validity"
)

// callAbstraction summarizes a call as edges from region projections of its
// arguments to region projections of its destination.
//
// Outlives between signature regions holds for equal regions, declared
// bounds of the signature and constraints of the body. A mutable reference
// argument whose region outlives the region of a returned reference gets an
// extra edge between the dereferenced places. Region projection nodes carry
// the regions of the place types at the same index.
func (t *transfer) callAbstraction(c *mir.Call) {
	sig := c.Sig
	if sig == nil {
		return
	}

	check := t.v.check.Phase(validity.ReportBorrows)
	if !check.Assert(
		len(sig.Inputs) == len(c.Args),
		validity.PCG010BorrowTypeMismatch,
		"%s: %s takes %d arguments, %d given", t.loc, c.Func, len(sig.Inputs), len(c.Args),
	) {
		return
	}

	outRegions := sig.Output.Regions()
	if len(outRegions) == 0 {
		return
	}

	r := t.v.repacker
	bs := t.d.Borrows
	sigRegions := oracle.NewRegionGraph(t.v.outlives, sig.Bounds)
	dest := borrows.Current(c.Destination)
	destRegions := r.Regions(c.Destination)

	for i, arg := range c.Args {
		p, ok := arg.PlaceOf()
		if !ok {
			continue
		}
		in := sig.Inputs[i]
		inRegions := in.Regions()
		if len(inRegions) == 0 {
			continue
		}
		if !check.Assert(
			mir.SameShape(r.Ty(p).Ty, in),
			validity.PCG010BorrowTypeMismatch,
			"%s: argument %d of %s is %s, %s expected", t.loc, i, c.Func, r.Ty(p).Ty, in,
		) {
			continue
		}

		src := borrows.Current(p)
		if arg.Kind == mir.OperandMove {
			src = borrows.OldAt(p, bs.GetLatest(p))
		}
		srcRegions := r.Regions(p)

		if in.IsMutRef() && sig.Output.IsRef() && sigRegions.Outlives(in.Region, sig.Output.Region) {
			t.addEdge(bs.AddRegionAbstraction(
				c.Func, i, t.loc,
				[]borrows.Node{borrows.PlaceNode(src.Project(mir.DerefElem()))},
				[]borrows.Node{borrows.PlaceNode(dest.Project(mir.DerefElem()))},
			))
		}

		for ii, ir := range inRegions {
			for jj, out := range outRegions {
				if !sigRegions.Outlives(ir, out) {
					continue
				}
				t.addEdge(bs.AddRegionAbstraction(
					c.Func, i, t.loc,
					[]borrows.Node{borrows.RegionProjectionNode(src, ii, regionAt(srcRegions, ii, ir))},
					[]borrows.Node{borrows.RegionProjectionNode(dest, jj, regionAt(destRegions, jj, out))},
				))
			}
		}
	}
}

func regionAt(regions []mir.RegionVid, i int, fallback mir.RegionVid) mir.RegionVid {
	if i < len(regions) {
		return regions[i]
	}

	return fallback
}
