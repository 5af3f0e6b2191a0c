package store

import (
	"context"
	"sync"
	"time"

	"formcheck/internal/address/metrics"
	"formcheck/internal/address/models"
	"formcheck/pkg/domain"
	"formcheck/pkg/platform/sentinel"
)

// ErrNotFound is returned when an address is not cached or has expired.
var ErrNotFound = sentinel.ErrNotFound

type cachedAddress struct {
	record   models.Address
	storedAt time.Time
}

// InMemoryCache provides an in-memory address cache with TTL expiration.
type InMemoryCache struct {
	mu        sync.Mutex
	addresses map[domain.PostalCode]cachedAddress
	cacheTTL  time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(cacheTTL time.Duration, metrics *metrics.Metrics) *InMemoryCache {
	return &InMemoryCache{
		addresses: make(map[domain.PostalCode]cachedAddress),
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SaveAddress stores an address keyed by postal code and sweeps expired
// entries. If record is nil, the operation is a no-op and returns nil.
func (c *InMemoryCache) SaveAddress(_ context.Context, code domain.PostalCode, record *models.Address) error {
	if record == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, cached := range c.addresses {
		if c.expired(cached, now) {
			delete(c.addresses, k)
		}
	}
	c.addresses[code] = cachedAddress{record: *record, storedAt: now}
	return nil
}

// FindAddress retrieves a cached address.
// Returns ErrNotFound if the entry does not exist or is older than the TTL;
// an expired entry is dropped.
func (c *InMemoryCache) FindAddress(_ context.Context, code domain.PostalCode) (*models.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.addresses[code]; ok {
		if !c.expired(cached, c.now()) {
			c.metrics.RecordCacheHit()
			record := cached.record
			return &record, nil
		}
		delete(c.addresses, code)
	}
	c.metrics.RecordCacheMiss()
	return nil, ErrNotFound
}

func (c *InMemoryCache) expired(cached cachedAddress, now time.Time) bool {
	return now.Sub(cached.storedAt) >= c.cacheTTL
}

// Len returns the number of entries held, including expired ones not yet
// swept.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.addresses)
}
