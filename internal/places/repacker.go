package places

import (
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/validity"
)

// Repacker answers type dependent questions about places of one body.
type Repacker struct {
	body  *mir.Body
	check *validity.PhaseChecker
}

// NewRepacker creates a repacker. A nil checker disables consistency checks.
func NewRepacker(body *mir.Body, check *validity.Checker) *Repacker {
	return &Repacker{
		body:  body,
		check: check.Phase(validity.ReportPlaces),
	}
}

// Body returns the body the repacker works with.
func (r *Repacker) Body() *mir.Body {
	return r.body
}

// PlaceTy is the type of a place. Variant is set to a variant index for
// places downcast to an enum variant and is -1 otherwise.
type PlaceTy struct {
	Ty      *mir.Ty
	Variant int
}

var unknownTy = mir.Scalar("{unknown}")

// Ty computes the type of a place.
func (r *Repacker) Ty(p mir.Place) PlaceTy {
	pt := PlaceTy{Ty: r.body.LocalTy(p.Local()), Variant: -1}
	for _, e := range p.Projection() {
		pt = r.project(p, pt, e)
	}

	return pt
}

func (r *Repacker) project(p mir.Place, pt PlaceTy, e mir.Elem) PlaceTy {
	t := pt.Ty
	switch e.Kind {
	case mir.ElemDeref:
		switch t.Kind {
		case mir.TyRef, mir.TyRawPtr, mir.TyBox:
			return PlaceTy{Ty: t.Elem, Variant: -1}
		}
	case mir.ElemField:
		switch {
		case (t.Kind == mir.TyStruct || t.Kind == mir.TyTuple) && e.Index < len(t.Fields):
			return PlaceTy{Ty: t.Fields[e.Index], Variant: -1}
		case t.Kind == mir.TyEnum && pt.Variant >= 0 && e.Index < len(t.Variants[pt.Variant].Fields):
			return PlaceTy{Ty: t.Variants[pt.Variant].Fields[e.Index], Variant: -1}
		}
	case mir.ElemDowncast:
		if t.Kind == mir.TyEnum && e.Index < len(t.Variants) {
			return PlaceTy{Ty: t, Variant: e.Index}
		}
	case mir.ElemIndex, mir.ElemConstantIndex:
		if t.Kind == mir.TyArray || t.Kind == mir.TySlice {
			return PlaceTy{Ty: t.Elem, Variant: -1}
		}
	case mir.ElemSubslice:
		switch t.Kind {
		case mir.TyArray:
			n := e.Length - e.Offset
			if e.FromEnd {
				n = t.Len - e.Length - e.Offset
			}
			return PlaceTy{Ty: mir.Array(t.Elem, n), Variant: -1}
		case mir.TySlice:
			return PlaceTy{Ty: t, Variant: -1}
		}
	}

	r.check.Assert(false, validity.PCG006InvalidProjection, "%s: cannot apply %s to %s", p, e, t)
	return PlaceTy{Ty: unknownTy, Variant: -1}
}

// IsOwned reports whether the place is not behind a reference or a raw
// pointer. Box dereferences keep a place owned.
func (r *Repacker) IsOwned(p mir.Place) bool {
	return !r.projectsThrough(p, func(t *mir.Ty) bool {
		return t.Kind == mir.TyRef || t.Kind == mir.TyRawPtr
	})
}

// ProjectsSharedRef reports whether the place is behind a shared reference.
func (r *Repacker) ProjectsSharedRef(p mir.Place) bool {
	return r.projectsThrough(p, func(t *mir.Ty) bool {
		return t.IsSharedRef()
	})
}

// ProjectsPtr returns the first prefix of the place which is a reference or a
// raw pointer that the place dereferences.
func (r *Repacker) ProjectsPtr(p mir.Place) (mir.Place, bool) {
	pt := PlaceTy{Ty: r.body.LocalTy(p.Local()), Variant: -1}
	for i, e := range p.Projection() {
		if e.Kind == mir.ElemDeref && (pt.Ty.Kind == mir.TyRef || pt.Ty.Kind == mir.TyRawPtr) {
			return p.Prefix(i), true
		}
		pt = r.project(p, pt, e)
	}

	return mir.Place{}, false
}

func (r *Repacker) projectsThrough(p mir.Place, pred func(*mir.Ty) bool) bool {
	pt := PlaceTy{Ty: r.body.LocalTy(p.Local()), Variant: -1}
	for _, e := range p.Projection() {
		if e.Kind == mir.ElemDeref && pred(pt.Ty) {
			return true
		}
		pt = r.project(p, pt, e)
	}

	return false
}

// JoinableTo extends from along to while steps are fields, constant
// indices counted from the start or dereferences of boxes and mutable
// references. from must be a prefix of to.
func (r *Repacker) JoinableTo(from, to mir.Place) mir.Place {
	if !from.IsPrefixOf(to) {
		return from
	}

	res := from
	pt := r.Ty(from)
	for _, e := range to.Projection()[from.Len():] {
		if !joinableElem(pt.Ty, e) {
			break
		}
		pt = r.project(to, pt, e)
		res = res.Project(e)
	}

	return res
}

func joinableElem(t *mir.Ty, e mir.Elem) bool {
	switch e.Kind {
	case mir.ElemField:
		return true
	case mir.ElemConstantIndex:
		return !e.FromEnd
	case mir.ElemDeref:
		return t.Kind == mir.TyBox || t.IsMutRef()
	default:
		return false
	}
}

// IsRef reports whether the place holds a reference.
func (r *Repacker) IsRef(p mir.Place) bool {
	return r.Ty(p).Ty.IsRef()
}

// IsMutRef reports whether the place holds a mutable reference.
func (r *Repacker) IsMutRef(p mir.Place) bool {
	return r.Ty(p).Ty.IsMutRef()
}

// Regions returns the regions of the place type. The index of a region in
// the result is its region projection index.
func (r *Repacker) Regions(p mir.Place) []mir.RegionVid {
	return r.Ty(p).Ty.Regions()
}

// FullCapacity reports whether the place may hold exclusive access. Places
// behind a shared reference can only ever be read.
func (r *Repacker) FullCapacity(p mir.Place) bool {
	return !r.ProjectsSharedRef(p)
}
