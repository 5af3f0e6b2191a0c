package models

import (
	"errors"
	"time"
)

// ErrNotFound is the address service's explicit "no such postal code" answer.
// It is a normal lookup result, distinct from a failed lookup.
var ErrNotFound = errors.New("postal code not found")

// Address is what a postal code resolves to. It only lives long enough to be
// written into the dependent fields (and, optionally, the lookup cache).
type Address struct {
	PostalCode   string    `json:"postal_code"`
	Street       string    `json:"street"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	City         string    `json:"city"`
	Region       string    `json:"region"`
	Source       string    `json:"source,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}
