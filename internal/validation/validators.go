// Package validation adapts the pure checks in checksum and age to the
// form.Validator capability.
package validation

import (
	"context"
	"time"

	"formcheck/internal/form"
	"formcheck/internal/validation/age"
	"formcheck/internal/validation/checksum"
	"formcheck/pkg/requestcontext"
)

// NationalIDValidator flags a CPF whose check digits do not match.
type NationalIDValidator struct{}

func (NationalIDValidator) Validate(_ context.Context, field *form.Field) {
	if checksum.Verify(field.Value) {
		field.ClearCustom()
		return
	}
	field.SetCustom(form.ReasonRejected)
}

// BirthDateValidator flags birth dates under MinYears as of Now. An
// unparseable date is flagged too: the age cannot be shown to be enough.
type BirthDateValidator struct {
	MinYears int
	// Now defaults to requestcontext.Now.
	Now func(ctx context.Context) time.Time
}

// NewBirthDateValidator uses the registration minimum age.
func NewBirthDateValidator() *BirthDateValidator {
	return &BirthDateValidator{MinYears: age.MinimumAge, Now: requestcontext.Now}
}

func (v *BirthDateValidator) Validate(ctx context.Context, field *form.Field) {
	now := requestcontext.Now
	if v.Now != nil {
		now = v.Now
	}
	birth, err := age.ParseBirthDate(field.Value)
	if err != nil || !age.IsAtLeast(birth, v.MinYears, now(ctx)) {
		field.SetCustom(form.ReasonRejected)
		return
	}
	field.ClearCustom()
}
