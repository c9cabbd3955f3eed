package validity

import "fmt"

// Rule represents an internal consistency rule code (PCG-series).
type Rule int

const (
	ruleInvalid Rule = iota

	PCG001ExpandNotPrefix
	PCG002CollapseMissingPlace
	PCG003CapabilityOrder
	PCG004FrontierOverlap
	PCG005MissingCapability
	PCG006InvalidProjection
	PCG010BorrowTypeMismatch
	PCG011DanglingEdge
)

// String returns the canonical code and short name of the rule.
// Example: "PCG001: ExpandNotPrefix"
func (r Rule) String() string {
	switch r {
	case PCG001ExpandNotPrefix:
		return "PCG001: ExpandNotPrefix"
	case PCG002CollapseMissingPlace:
		return "PCG002: CollapseMissingPlace"
	case PCG003CapabilityOrder:
		return "PCG003: CapabilityOrder"
	case PCG004FrontierOverlap:
		return "PCG004: FrontierOverlap"
	case PCG005MissingCapability:
		return "PCG005: MissingCapability"
	case PCG006InvalidProjection:
		return "PCG006: InvalidProjection"
	case PCG010BorrowTypeMismatch:
		return "PCG010: BorrowTypeMismatch"
	case PCG011DanglingEdge:
		return "PCG011: DanglingEdge"
	default:
		return fmt.Sprintf("rule-unknown(%d)", r)
	}
}

// Description returns the human-readable explanation of the rule.
func (r Rule) Description() string {
	switch r {
	case PCG001ExpandNotPrefix:
		return "The expanded place must be a prefix of the expansion target."
	case PCG002CollapseMissingPlace:
		return "Places being collapsed must contain every place needed to rebuild the target."
	case PCG003CapabilityOrder:
		return "A weakened capability must be lower than the original one."
	case PCG004FrontierOverlap:
		return "Tracked places of a local must not be in a prefix relation."
	case PCG005MissingCapability:
		return "An instruction requires a capability the state does not grant."
	case PCG006InvalidProjection:
		return "A projection must be consistent with the type it is applied to."
	case PCG010BorrowTypeMismatch:
		return "A borrowed place and the place assigned the borrow must have the same type."
	case PCG011DanglingEdge:
		return "A borrow graph edge must not be empty on either side."
	default:
		return fmt.Sprintf("unknown-rule(%d)", r)
	}
}
