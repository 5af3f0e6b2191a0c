package domain

import (
	"strings"

	dErrors "formcheck/pkg/domain-errors"
)

// PostalCodeLength is the digit count of a Brazilian postal code (CEP).
const PostalCodeLength = 8

// PostalCode is a normalized, digits-only CEP. It is a domain primitive: the
// only way to obtain a non-empty one is ParsePostalCode.
type PostalCode string

// ParsePostalCode strips punctuation and enforces the digit count.
func ParsePostalCode(raw string) (PostalCode, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
		default:
			return "", dErrors.New(dErrors.CodeInvalidInput, "postal code contains invalid characters")
		}
	}
	digits := b.String()
	if len(digits) != PostalCodeLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "postal code must have 8 digits")
	}
	return PostalCode(digits), nil
}

// String returns the digits.
func (p PostalCode) String() string {
	return string(p)
}

// Formatted renders 00000-000.
func (p PostalCode) Formatted() string {
	if len(p) != PostalCodeLength {
		return string(p)
	}
	return string(p[:5]) + "-" + string(p[5:])
}

// IsNil returns true if the postal code is empty.
func (p PostalCode) IsNil() bool {
	return p == ""
}
