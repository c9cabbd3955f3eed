package mir

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// ElemKind enumerates projection kinds.
type ElemKind uint8

const (
	elemInvalid ElemKind = iota
	ElemDeref
	ElemField
	ElemIndex
	ElemConstantIndex
	ElemSubslice
	ElemDowncast
)

var elemKindNames = map[ElemKind]string{
	ElemDeref:         "deref",
	ElemField:         "field",
	ElemIndex:         "index",
	ElemConstantIndex: "constant-index",
	ElemSubslice:      "subslice",
	ElemDowncast:      "downcast",
}

func (k ElemKind) String() string {
	v, ok := elemKindNames[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// Elem is a single projection step.
//
// Index holds the field index for ElemField, the variant index for
// ElemDowncast and the index local for ElemIndex. Offset and Length hold
// offset and minimal length for ElemConstantIndex, bounds for ElemSubslice.
type Elem struct {
	Kind    ElemKind
	Index   int
	Offset  int
	Length  int
	FromEnd bool
}

// DerefElem constructs a dereference projection.
func DerefElem() Elem { return Elem{Kind: ElemDeref} }

// FieldElem constructs a field projection.
func FieldElem(i int) Elem { return Elem{Kind: ElemField, Index: i} }

// IndexElem constructs an index projection by a local.
func IndexElem(l Local) Elem { return Elem{Kind: ElemIndex, Index: int(l)} }

// ConstantIndexElem constructs a constant index projection.
func ConstantIndexElem(offset, minLength int, fromEnd bool) Elem {
	return Elem{Kind: ElemConstantIndex, Offset: offset, Length: minLength, FromEnd: fromEnd}
}

// SubsliceElem constructs a subslice projection.
func SubsliceElem(from, to int, fromEnd bool) Elem {
	return Elem{Kind: ElemSubslice, Offset: from, Length: to, FromEnd: fromEnd}
}

// DowncastElem constructs a downcast to the given enum variant.
func DowncastElem(variant int) Elem { return Elem{Kind: ElemDowncast, Index: variant} }

func (e Elem) String() string {
	switch e.Kind {
	case ElemDeref:
		return ".*"
	case ElemField:
		return "." + strconv.Itoa(e.Index)
	case ElemIndex:
		return "[" + Local(e.Index).String() + "]"
	case ElemConstantIndex:
		if e.FromEnd {
			return fmt.Sprintf("[-%d of %d]", e.Offset, e.Length)
		}
		return fmt.Sprintf("[%d of %d]", e.Offset, e.Length)
	case ElemSubslice:
		if e.FromEnd {
			return fmt.Sprintf("[%d..-%d]", e.Offset, e.Length)
		}
		return fmt.Sprintf("[%d..%d]", e.Offset, e.Length)
	case ElemDowncast:
		return "@" + strconv.Itoa(e.Index)
	default:
		return "<" + e.Kind.String() + ">"
	}
}

func (e Elem) appendTo(b []byte) []byte {
	b = append(b, byte(e.Kind))
	switch e.Kind {
	case ElemField, ElemIndex, ElemDowncast:
		b = binary.AppendUvarint(b, uint64(e.Index))
	case ElemConstantIndex, ElemSubslice:
		b = binary.AppendUvarint(b, uint64(e.Offset))
		b = binary.AppendUvarint(b, uint64(e.Length))
		if e.FromEnd {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}

	return b
}

// decodeElem decodes an element at the start of s and returns it along with
// the encoded length.
func decodeElem(s string) (Elem, int) {
	e := Elem{Kind: ElemKind(s[0])}
	pos := 1
	next := func() int {
		v, n := binary.Uvarint([]byte(s[pos:]))
		pos += n
		return int(v)
	}

	switch e.Kind {
	case ElemField, ElemIndex, ElemDowncast:
		e.Index = next()
	case ElemConstantIndex, ElemSubslice:
		e.Offset = next()
		e.Length = next()
		e.FromEnd = s[pos] == 1
		pos++
	}

	return e, pos
}

// Place is a root local plus a projection path. Places are comparable values.
type Place struct {
	local Local
	depth uint16
	proj  string
}

// NewPlace constructs a place.
func NewPlace(local Local, elems ...Elem) Place {
	return Place{local: local}.Project(elems...)
}

// Local returns the root local of the place.
func (p Place) Local() Local {
	return p.local
}

// Len returns the number of projection elements.
func (p Place) Len() int {
	return int(p.depth)
}

// IsRoot reports whether the place has no projections.
func (p Place) IsRoot() bool {
	return p.depth == 0
}

// Projection decodes the projection path.
func (p Place) Projection() []Elem {
	res := make([]Elem, 0, p.depth)
	for rest := p.proj; rest != ""; {
		e, n := decodeElem(rest)
		res = append(res, e)
		rest = rest[n:]
	}

	return res
}

// Elem returns i-th projection element.
func (p Place) Elem(i int) Elem {
	rest := p.proj
	for {
		e, n := decodeElem(rest)
		if i == 0 {
			return e
		}
		i--
		rest = rest[n:]
	}
}

// Last returns the last projection element if there is one.
func (p Place) Last() (Elem, bool) {
	if p.depth == 0 {
		return Elem{}, false
	}

	return p.Elem(int(p.depth) - 1), true
}

// Project extends the place with more projection elements.
func (p Place) Project(elems ...Elem) Place {
	if len(elems) == 0 {
		return p
	}

	b := []byte(p.proj)
	for _, e := range elems {
		b = e.appendTo(b)
	}

	return Place{
		local: p.local,
		depth: p.depth + uint16(len(elems)),
		proj:  string(b),
	}
}

// Deref projects a dereference.
func (p Place) Deref() Place {
	return p.Project(DerefElem())
}

// Field projects a field.
func (p Place) Field(i int) Place {
	return p.Project(FieldElem(i))
}

// Prefix returns the place truncated to n projection elements.
func (p Place) Prefix(n int) Place {
	if n >= int(p.depth) {
		return p
	}

	pos := 0
	for i := 0; i < n; i++ {
		_, l := decodeElem(p.proj[pos:])
		pos += l
	}

	return Place{
		local: p.local,
		depth: uint16(n),
		proj:  p.proj[:pos],
	}
}

// Parent returns the place with the last projection removed.
func (p Place) Parent() (Place, bool) {
	if p.depth == 0 {
		return p, false
	}

	return p.Prefix(int(p.depth) - 1), true
}

// Root returns the bare local place.
func (p Place) Root() Place {
	return Place{local: p.local}
}

// IsPrefixOf reports whether p is a prefix of q. Every place is a prefix of
// itself.
func (p Place) IsPrefixOf(q Place) bool {
	// Element encodings are self-delimiting, so a byte prefix is an element
	// prefix.
	return p.local == q.local && p.depth <= q.depth && strings.HasPrefix(q.proj, p.proj)
}

// IsStrictPrefixOf reports whether p is a prefix of q and differs from it.
func (p Place) IsStrictPrefixOf(q Place) bool {
	return p.depth < q.depth && p.IsPrefixOf(q)
}

// HasDeref reports whether the projection path contains a dereference.
func (p Place) HasDeref() bool {
	for _, e := range p.Projection() {
		if e.Kind == ElemDeref {
			return true
		}
	}

	return false
}

// Cmp is a total order on places used for deterministic iteration.
func (p Place) Cmp(q Place) int {
	switch {
	case p.local < q.local:
		return -1
	case p.local > q.local:
		return 1
	case p.proj < q.proj:
		return -1
	case p.proj > q.proj:
		return 1
	default:
		return 0
	}
}

func (p Place) String() string {
	var buf strings.Builder
	buf.WriteString(p.local.String())
	for _, e := range p.Projection() {
		buf.WriteString(e.String())
	}

	return buf.String()
}
