package mir

import (
	"fmt"
	"strconv"
	"strings"
)

// TyKind enumerates the type shapes the model knows about.
type TyKind int

const (
	tyInvalid TyKind = iota
	TyScalar
	TyStruct
	TyEnum
	TyTuple
	TyRef
	TyRawPtr
	TyBox
	TyArray
	TySlice
)

var tyKindNames = map[TyKind]string{
	TyScalar: "scalar",
	TyStruct: "struct",
	TyEnum:   "enum",
	TyTuple:  "tuple",
	TyRef:    "ref",
	TyRawPtr: "rawptr",
	TyBox:    "box",
	TyArray:  "array",
	TySlice:  "slice",
}

func (k TyKind) String() string {
	v, ok := tyKindNames[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// Ty describes the shape of a value.
//
// Which fields are meaningful depends on Kind:
//
//   - TyScalar: Name.
//   - TyStruct: Name, Fields.
//   - TyEnum: Name, Variants.
//   - TyTuple: Fields.
//   - TyRef: Region, Mut, Elem.
//   - TyRawPtr: Mut, Elem.
//   - TyBox, TySlice: Elem.
//   - TyArray: Elem, Len.
type Ty struct {
	Kind     TyKind
	Name     string
	Fields   []*Ty
	Variants []Variant
	Elem     *Ty
	Region   RegionVid
	Mut      Mutability
	Len      int
}

// Variant of an enum type.
type Variant struct {
	Name   string
	Fields []*Ty
}

// Scalar type constructor.
func Scalar(name string) *Ty { return &Ty{Kind: TyScalar, Name: name} }

// Unit is the empty tuple.
func Unit() *Ty { return &Ty{Kind: TyTuple} }

// Tuple type constructor.
func Tuple(fields ...*Ty) *Ty { return &Ty{Kind: TyTuple, Fields: fields} }

// Struct type constructor.
func Struct(name string, fields ...*Ty) *Ty { return &Ty{Kind: TyStruct, Name: name, Fields: fields} }

// Enum type constructor.
func Enum(name string, variants ...Variant) *Ty { return &Ty{Kind: TyEnum, Name: name, Variants: variants} }

// Ref type constructor.
func Ref(region RegionVid, mut Mutability, elem *Ty) *Ty {
	return &Ty{Kind: TyRef, Region: region, Mut: mut, Elem: elem}
}

// RawPtr type constructor.
func RawPtr(mut Mutability, elem *Ty) *Ty { return &Ty{Kind: TyRawPtr, Mut: mut, Elem: elem} }

// Box type constructor.
func Box(elem *Ty) *Ty { return &Ty{Kind: TyBox, Elem: elem} }

// Array type constructor.
func Array(elem *Ty, n int) *Ty { return &Ty{Kind: TyArray, Elem: elem, Len: n} }

// Slice type constructor.
func Slice(elem *Ty) *Ty { return &Ty{Kind: TySlice, Elem: elem} }

// IsRef reports whether the type is a reference.
func (t *Ty) IsRef() bool { return t != nil && t.Kind == TyRef }

// IsMutRef reports whether the type is a mutable reference.
func (t *Ty) IsMutRef() bool { return t.IsRef() && t.Mut == Mut }

// IsSharedRef reports whether the type is a shared reference.
func (t *Ty) IsSharedRef() bool { return t.IsRef() && t.Mut == Not }

// IsUnit reports whether the type is the empty tuple.
func (t *Ty) IsUnit() bool { return t != nil && t.Kind == TyTuple && len(t.Fields) == 0 }

// Regions returns regions appearing in the type in traversal order. Every
// region is listed once, at its first occurrence. The position of a region in
// this list is its region projection index.
func (t *Ty) Regions() []RegionVid {
	var res []RegionVid
	seen := map[RegionVid]struct{}{}
	t.visitRegions(func(r RegionVid) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		res = append(res, r)
	})

	return res
}

func (t *Ty) visitRegions(f func(RegionVid)) {
	if t == nil {
		return
	}

	switch t.Kind {
	case TyRef:
		f(t.Region)
		t.Elem.visitRegions(f)
	case TyRawPtr, TyBox, TyArray, TySlice:
		t.Elem.visitRegions(f)
	case TyStruct, TyTuple:
		for _, fld := range t.Fields {
			fld.visitRegions(f)
		}
	case TyEnum:
		for _, v := range t.Variants {
			for _, fld := range v.Fields {
				fld.visitRegions(f)
			}
		}
	}
}

// SameShape compares types ignoring regions.
func SameShape(a, b *Ty) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind || a.Name != b.Name || a.Len != b.Len {
		return false
	}
	if (a.Kind == TyRef || a.Kind == TyRawPtr) && a.Mut != b.Mut {
		return false
	}
	if !SameShape(a.Elem, b.Elem) {
		return false
	}
	if !sameShapes(a.Fields, b.Fields) {
		return false
	}
	if len(a.Variants) != len(b.Variants) {
		return false
	}
	for i := range a.Variants {
		if a.Variants[i].Name != b.Variants[i].Name || !sameShapes(a.Variants[i].Fields, b.Variants[i].Fields) {
			return false
		}
	}

	return true
}

func sameShapes(a, b []*Ty) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !SameShape(a[i], b[i]) {
			return false
		}
	}

	return true
}

func (t *Ty) String() string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind {
	case TyScalar:
		return t.Name
	case TyStruct, TyEnum:
		if t.Name != "" {
			return t.Name
		}
		return t.Kind.String()
	case TyTuple:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TyRef:
		if t.Mut == Mut {
			return "&" + t.Region.String() + " mut " + t.Elem.String()
		}
		return "&" + t.Region.String() + " " + t.Elem.String()
	case TyRawPtr:
		if t.Mut == Mut {
			return "*mut " + t.Elem.String()
		}
		return "*const " + t.Elem.String()
	case TyBox:
		return "Box<" + t.Elem.String() + ">"
	case TyArray:
		return "[" + t.Elem.String() + "; " + strconv.Itoa(t.Len) + "]"
	case TySlice:
		return "[" + t.Elem.String() + "]"
	default:
		return t.Kind.String()
	}
}
