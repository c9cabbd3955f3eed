package capability

import (
	"fmt"
)

// Kind is a capability held over a place.
type Kind int

const (
	kindInvalid Kind = iota

	// None means the place exists but is fully lent out.
	None

	// Read allows reads only.
	Read

	// Write allows writes but not reads.
	Write

	// Exclusive allows anything, the place is fully owned and unaliased.
	Exclusive
)

var kindValueMap = map[Kind]string{
	None:      "none",
	Read:      "read",
	Write:     "write",
	Exclusive: "exclusive",
}

func (k Kind) String() string {
	v, ok := kindValueMap[k]
	if !ok {
		return fmt.Sprintf("invalid(%d)", k)
	}

	return v
}

// Short returns a one letter form used in compact dumps.
func (k Kind) Short() string {
	switch k {
	case None:
		return "N"
	case Read:
		return "R"
	case Write:
		return "W"
	case Exclusive:
		return "E"
	default:
		return "?"
	}
}

// MarshalText for serializing dumps.
func (k Kind) MarshalText() ([]byte, error) {
	v, ok := kindValueMap[k]
	if !ok {
		return nil, fmt.Errorf("invalid capability %d", k)
	}

	return []byte(v), nil
}

// UnmarshalText for setting values with configs, fixtures, etc.
func (k *Kind) UnmarshalText(rawtext []byte) error {
	text := string(rawtext)
	for kk, v := range kindValueMap {
		if v == text {
			*k = kk
			return nil
		}
	}

	return fmt.Errorf("unknown capability %q", text)
}

// Compare compares two capabilities. It returns false for incomparable ones.
func Compare(a, b Kind) (int, bool) {
	switch {
	case a == b:
		return 0, true
	case a == None || b == Exclusive:
		return -1, true
	case b == None || a == Exclusive:
		return 1, true
	default:
		return 0, false
	}
}

// LessEq reports whether a is below or equal to b.
func (a Kind) LessEq(b Kind) bool {
	c, ok := Compare(a, b)
	return ok && c <= 0
}

// Minimum returns the smaller of two comparable capabilities.
func Minimum(a, b Kind) (Kind, bool) {
	c, ok := Compare(a, b)
	switch {
	case !ok:
		return kindInvalid, false
	case c <= 0:
		return a, true
	default:
		return b, true
	}
}

// Meet is the lattice meet. It is total, the meet of Read and Write is None.
func Meet(a, b Kind) Kind {
	if m, ok := Minimum(a, b); ok {
		return m
	}

	return None
}
