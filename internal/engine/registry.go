// Package engine dispatches field validation by field type, turns the
// resulting validity state into a presented message, and owns the event
// loop that serializes every field mutation.
package engine

import (
	"sync"

	"formcheck/internal/form"
	"formcheck/internal/validation"
	dErrors "formcheck/pkg/domain-errors"
)

// Registry maps a field type to its custom validator. Types without one are
// validated by their declarative rules alone.
type Registry struct {
	mu         sync.RWMutex
	validators map[form.FieldType]form.Validator
}

// NewRegistry registers the synchronous validators. The postal code
// resolver depends on the engine that reports its results, so it is
// registered once that engine exists (see NewSession).
func NewRegistry(birthDate *validation.BirthDateValidator) *Registry {
	if birthDate == nil {
		birthDate = validation.NewBirthDateValidator()
	}
	r := &Registry{validators: make(map[form.FieldType]form.Validator)}
	r.Register(form.FieldNationalID, validation.NationalIDValidator{})
	r.Register(form.FieldBirthDate, birthDate)
	return r
}

// Register sets or replaces the validator for t.
func (r *Registry) Register(t form.FieldType, v form.Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[t] = v
}

// ValidatorFor returns the custom validator for t, if any.
func (r *Registry) ValidatorFor(t form.FieldType) (form.Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[t]
	return v, ok
}

// Types lists the field types that have a custom validator, in form order.
func (r *Registry) Types() []form.FieldType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []form.FieldType
	for _, t := range form.FieldTypes {
		if _, ok := r.validators[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// requiredValidators are the types every session must be able to dispatch.
var requiredValidators = []form.FieldType{
	form.FieldNationalID,
	form.FieldBirthDate,
	form.FieldPostalCode,
}

// complete reports the first required type with no validator.
func (r *Registry) complete() error {
	for _, t := range requiredValidators {
		if _, ok := r.ValidatorFor(t); !ok {
			return dErrors.New(dErrors.CodeInvariantViolation, "no validator registered for "+t.String())
		}
	}
	return nil
}
