package viacep

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy of an address lookup.
type ErrorCategory string

const (
	// ErrorTimeout indicates the service took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorCanceled indicates the caller abandoned the lookup
	ErrorCanceled ErrorCategory = "canceled"

	// ErrorBadData indicates the service returned a malformed payload
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates the service is unreachable or failing
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected failure on our side
	ErrorInternal ErrorCategory = "internal"
)

// LookupError wraps a failed lookup with its category. It never represents
// an unknown postal code; that is models.ErrNotFound.
type LookupError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
}

func (e *LookupError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// NewLookupError creates a categorized lookup error.
func NewLookupError(category ErrorCategory, providerID, message string, underlying error) *LookupError {
	return &LookupError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the category from err, defaulting to ErrorInternal.
func GetCategory(err error) ErrorCategory {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Category
	}
	return ErrorInternal
}

// countsAgainstBreaker reports whether a failure says something about the
// health of the service.
func countsAgainstBreaker(category ErrorCategory) bool {
	return category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited
}
