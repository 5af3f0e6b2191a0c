package address

import (
	"context"
	"errors"
	"log/slog"

	"formcheck/internal/address/models"
	"formcheck/internal/address/ports"
	"formcheck/internal/address/store"
	"formcheck/pkg/domain"
)

// CachedLookup consults a cache before the upstream lookup. Only found
// addresses are cached; "not found" and failures always go upstream again.
type CachedLookup struct {
	upstream ports.Lookup
	cache    ports.Cache
	logger   *slog.Logger
}

// NewCachedLookup wraps upstream. A nil cache returns upstream unchanged.
func NewCachedLookup(upstream ports.Lookup, cache ports.Cache, logger *slog.Logger) ports.Lookup {
	if cache == nil {
		return upstream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedLookup{upstream: upstream, cache: cache, logger: logger}
}

func (c *CachedLookup) Lookup(ctx context.Context, code domain.PostalCode) (*models.Address, error) {
	cached, err := c.cache.FindAddress(ctx, code)
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, store.ErrNotFound):
		c.logger.WarnContext(ctx, "address cache read failed",
			"postal_code", code.String(),
			"error", err,
		)
	}

	record, err := c.upstream.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SaveAddress(ctx, code, record); err != nil {
		c.logger.WarnContext(ctx, "address cache write failed",
			"postal_code", code.String(),
			"error", err,
		)
	}
	return record, nil
}
