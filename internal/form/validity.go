package form

import "fmt"

// Condition is one error condition. The declaration order is the priority
// order used when more than one is active.
type Condition int

const (
	ConditionNone Condition = iota
	ConditionMissing
	ConditionTypeMismatch
	ConditionPatternMismatch
	ConditionCustom
)

// Conditions lists the error conditions in priority order.
var Conditions = []Condition{
	ConditionMissing,
	ConditionTypeMismatch,
	ConditionPatternMismatch,
	ConditionCustom,
}

func (c Condition) String() string {
	switch c {
	case ConditionMissing:
		return "missing"
	case ConditionTypeMismatch:
		return "typeMismatch"
	case ConditionPatternMismatch:
		return "patternMismatch"
	case ConditionCustom:
		return "custom"
	default:
		return "none"
	}
}

// ParseCondition is the inverse of Condition.String for error conditions.
func ParseCondition(s string) (Condition, error) {
	for _, c := range Conditions {
		if c.String() == s {
			return c, nil
		}
	}
	return ConditionNone, fmt.Errorf("unknown condition: %q", s)
}

// CustomReason says why a custom validator rejected a field. The message shown
// is the same for every reason of a field type; the reason feeds the error
// kind, logs and metrics.
type CustomReason int

const (
	ReasonNone CustomReason = iota
	// ReasonRejected: checksum or age threshold failed.
	ReasonRejected
	// ReasonNotFound: the address service has no record for the code.
	ReasonNotFound
	// ReasonUnavailable: the lookup could not complete.
	ReasonUnavailable
)

func (r CustomReason) String() string {
	switch r {
	case ReasonRejected:
		return "rejected"
	case ReasonNotFound:
		return "not_found"
	case ReasonUnavailable:
		return "unavailable"
	default:
		return "none"
	}
}

// ValidityState is the set of active conditions on a field.
type ValidityState struct {
	Missing         bool
	TypeMismatch    bool
	PatternMismatch bool
	Custom          bool
	CustomReason    CustomReason
}

// Valid reports whether no condition is active.
func (v ValidityState) Valid() bool {
	return !v.Missing && !v.TypeMismatch && !v.PatternMismatch && !v.Custom
}

// Has reports whether c is active.
func (v ValidityState) Has(c Condition) bool {
	switch c {
	case ConditionMissing:
		return v.Missing
	case ConditionTypeMismatch:
		return v.TypeMismatch
	case ConditionPatternMismatch:
		return v.PatternMismatch
	case ConditionCustom:
		return v.Custom
	default:
		return false
	}
}

// First returns the highest-priority active condition, or ConditionNone.
func (v ValidityState) First() Condition {
	for _, c := range Conditions {
		if v.Has(c) {
			return c
		}
	}
	return ConditionNone
}
