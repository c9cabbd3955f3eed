package engine

import (
	"fmt"
)

// Phase is a step of an instruction transfer.
type Phase int

const (
	phaseInvalid Phase = iota

	// PreparingBefore makes operands of an instruction available.
	PreparingBefore

	// ApplyingBefore consumes operands.
	ApplyingBefore

	// PreparingAfter makes the instruction target available.
	PreparingAfter

	// ApplyingAfter applies the effect of the instruction.
	ApplyingAfter
)

// Phases lists phases in evaluation order.
var Phases = []Phase{PreparingBefore, ApplyingBefore, PreparingAfter, ApplyingAfter}

var phaseValueMap = map[Phase]string{
	PreparingBefore: "preparing_before",
	ApplyingBefore:  "applying_before",
	PreparingAfter:  "preparing_after",
	ApplyingAfter:   "applying_after",
}

func (p Phase) String() string {
	v, ok := phaseValueMap[p]
	if !ok {
		return fmt.Sprintf("invalid(%d)", p)
	}

	return v
}

// MarshalText for serializing dumps.
func (p Phase) MarshalText() ([]byte, error) {
	v, ok := phaseValueMap[p]
	if !ok {
		return nil, fmt.Errorf("invalid phase %d", p)
	}

	return []byte(v), nil
}

// UnmarshalText to support config and fixture values.
func (p *Phase) UnmarshalText(rawtext []byte) error {
	text := string(rawtext)
	for k, v := range phaseValueMap {
		if v == text {
			*p = k
			return nil
		}
	}

	return fmt.Errorf("unknown phase %q", text)
}
