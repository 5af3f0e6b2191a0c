// Package ports declares the capabilities the address resolver depends on.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Lookup,Cache

import (
	"context"

	"formcheck/internal/address/models"
	"formcheck/pkg/domain"
)

// Lookup resolves a postal code against an address service. It returns
// models.ErrNotFound when the service explicitly reports the code as unknown;
// any other error means the lookup could not complete.
type Lookup interface {
	Lookup(ctx context.Context, code domain.PostalCode) (*models.Address, error)
}

// Cache stores resolved addresses. Implementations return store.ErrNotFound
// on a miss or an expired entry.
type Cache interface {
	FindAddress(ctx context.Context, code domain.PostalCode) (*models.Address, error)
	SaveAddress(ctx context.Context, code domain.PostalCode, record *models.Address) error
}
