package capability

import (
	"fmt"

	"github.com/sirkon/pcg/internal/mir"
)

// OpKind enumerates summary changes.
type OpKind int

const (
	opInvalid OpKind = iota
	OpExpand
	OpCollapse
	OpWeaken
	OpRestore
	OpAllocate
	OpDeallocate
)

var opKindNames = map[OpKind]string{
	OpExpand:     "expand",
	OpCollapse:   "collapse",
	OpWeaken:     "weaken",
	OpRestore:    "restore",
	OpAllocate:   "allocate",
	OpDeallocate: "deallocate",
}

func (k OpKind) String() string {
	v, ok := opKindNames[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// Op is a single change of a summary.
//
// Expand and collapse ops describe one level: Base is the coarse place,
// Target is its child on the expansion path and To is the capability Base
// had before an expansion or gets after a collapse. Weaken lowers the
// capability of Base from From to To, a zero To means the entry is removed.
// Restore raises the capability of Base to To. Allocate and Deallocate
// change the allocation state of a local, Base is the local root.
type Op struct {
	Kind   OpKind
	Base   mir.Place
	Target mir.Place
	From   Kind
	To     Kind
}

// Removed reports whether a weaken op removes the entry.
func (o Op) Removed() bool {
	return o.Kind == OpWeaken && o.To == kindInvalid
}

func (o Op) String() string {
	switch o.Kind {
	case OpExpand:
		return fmt.Sprintf("expand %s -> %s (%s)", o.Base, o.Target, o.To)
	case OpCollapse:
		return fmt.Sprintf("collapse %s -> %s (%s)", o.Target, o.Base, o.To)
	case OpWeaken:
		if o.Removed() {
			return fmt.Sprintf("weaken %s from %s to removed", o.Base, o.From)
		}
		return fmt.Sprintf("weaken %s from %s to %s", o.Base, o.From, o.To)
	case OpRestore:
		return fmt.Sprintf("restore %s to %s", o.Base, o.To)
	case OpAllocate:
		return fmt.Sprintf("allocate %s (%s)", o.Base, o.To)
	case OpDeallocate:
		return fmt.Sprintf("deallocate %s", o.Base)
	default:
		return o.Kind.String()
	}
}
