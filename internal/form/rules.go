package form

import (
	"github.com/asaskevich/govalidator"
)

// Format is the input type constraint of a field.
type Format int

const (
	FormatText Format = iota
	FormatEmail
)

// Rules are the declarative constraints of a field: what an input element
// would express with required, type and pattern attributes.
type Rules struct {
	Required bool
	Format   Format
	// Patterns must all match a non-empty value. RE2 syntax, anchored by the
	// author where needed.
	Patterns []string
}

// Check evaluates the declarative conditions for value. Format and pattern
// constraints only apply to non-empty values, so an empty optional field is
// valid.
func (r Rules) Check(value string) ValidityState {
	var v ValidityState
	if govalidator.IsNull(value) {
		v.Missing = r.Required
		return v
	}
	if r.Format == FormatEmail && !govalidator.IsEmail(value) {
		v.TypeMismatch = true
	}
	for _, p := range r.Patterns {
		if !govalidator.Matches(value, p) {
			v.PatternMismatch = true
			break
		}
	}
	return v
}

// Reachable lists the declarative conditions these rules can raise, in
// priority order.
func (r Rules) Reachable() []Condition {
	var out []Condition
	if r.Required {
		out = append(out, ConditionMissing)
	}
	if r.Format != FormatText {
		out = append(out, ConditionTypeMismatch)
	}
	if len(r.Patterns) > 0 {
		out = append(out, ConditionPatternMismatch)
	}
	return out
}
