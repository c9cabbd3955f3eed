package oracle

import (
	"fmt"
	"slices"

	"github.com/sirkon/pcg/internal/mir"
)

// Point is a program point: the start or the middle of a location. The
// middle point sits between operand evaluation and the effect of an
// instruction.
type Point struct {
	Location mir.Location
	Mid      bool
}

// StartOf returns the start point of a location.
func StartOf(loc mir.Location) Point {
	return Point{Location: loc}
}

// MidOf returns the mid point of a location.
func MidOf(loc mir.Location) Point {
	return Point{Location: loc, Mid: true}
}

func (p Point) String() string {
	if p.Mid {
		return "mid(" + p.Location.String() + ")"
	}

	return "start(" + p.Location.String() + ")"
}

// Loan is a borrow of a place created at its reserve location.
type Loan struct {
	ID      int
	Reserve mir.Location
	Place   mir.Place
	Mut     mir.Mutability
	Region  mir.RegionVid
}

func (l Loan) String() string {
	return fmt.Sprintf("L%d(&%s %s %s at %s)", l.ID, l.Region, l.Mut, l.Place, l.Reserve)
}

// Oracle is the region inference output.
type Oracle interface {
	// OutlivesConstraints returns every `Sup: Sub` constraint of a body.
	OutlivesConstraints() []mir.Outlives

	// LoansInvalidatedAt returns loans invalidated at the point.
	LoansInvalidatedAt(p Point) []Loan

	// OriginsLiveAt returns regions live at the point. The second return is
	// false when the point is unknown.
	OriginsLiveAt(p Point) ([]mir.RegionVid, bool)

	// BorrowSet returns every loan of a body.
	BorrowSet() []Loan

	// Complete reports whether the output has been computed in full.
	Complete() bool
}

// Facts is an Oracle holding precomputed facts.
type Facts struct {
	Outlives    []mir.Outlives
	Loans       []Loan
	Invalidated map[Point][]int
	LiveOrigins map[Point][]mir.RegionVid
	Partial     bool
}

var _ Oracle = &Facts{}

// OutlivesConstraints implements Oracle.
func (f *Facts) OutlivesConstraints() []mir.Outlives {
	return f.Outlives
}

// LoansInvalidatedAt implements Oracle.
func (f *Facts) LoansInvalidatedAt(p Point) []Loan {
	var res []Loan
	for _, id := range f.Invalidated[p] {
		i := slices.IndexFunc(f.Loans, func(l Loan) bool { return l.ID == id })
		if i >= 0 {
			res = append(res, f.Loans[i])
		}
	}

	return res
}

// OriginsLiveAt implements Oracle.
func (f *Facts) OriginsLiveAt(p Point) ([]mir.RegionVid, bool) {
	regions, ok := f.LiveOrigins[p]
	return regions, ok
}

// BorrowSet implements Oracle.
func (f *Facts) BorrowSet() []Loan {
	return f.Loans
}

// Complete implements Oracle.
func (f *Facts) Complete() bool {
	return !f.Partial
}
