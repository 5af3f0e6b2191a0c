// Package age decides whether a birth date meets a minimum age.
package age

import (
	"fmt"
	"strings"
	"time"
)

// MinimumAge is the age required to register.
const MinimumAge = 18

// DateLayout is the layout of a date input value.
const DateLayout = "2006-01-02"

// IsAtLeast reports whether someone born on birthDate is at least minYears old
// on asOf. Only calendar dates are compared.
//
// Birthdays on Feb 29 roll forward: in a non-leap year the anniversary is
// Mar 1, which is how time.Date normalizes the day overflow.
func IsAtLeast(birthDate time.Time, minYears int, asOf time.Time) bool {
	anniversary := time.Date(birthDate.Year()+minYears, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return !anniversary.After(today)
}

// ParseBirthDate parses a YYYY-MM-DD value.
func ParseBirthDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse birth date %q: %w", value, err)
	}
	return t, nil
}
