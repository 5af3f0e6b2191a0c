package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"formcheck/internal/address/metrics"
	"formcheck/internal/address/models"
	"formcheck/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS address_cache (
	postal_code  TEXT PRIMARY KEY,
	street       TEXT NOT NULL DEFAULT '',
	neighborhood TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	region       TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	checked_at   TIMESTAMPTZ NOT NULL
)`

const findAddressQuery = `
SELECT postal_code, street, neighborhood, city, region, source, checked_at
FROM address_cache
WHERE postal_code = $1 AND checked_at > $2`

const upsertAddressQuery = `
INSERT INTO address_cache (postal_code, street, neighborhood, city, region, source, checked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (postal_code) DO UPDATE SET
	street = EXCLUDED.street,
	neighborhood = EXCLUDED.neighborhood,
	city = EXCLUDED.city,
	region = EXCLUDED.region,
	source = EXCLUDED.source,
	checked_at = EXCLUDED.checked_at`

// PostgresCache persists address cache entries in PostgreSQL.
type PostgresCache struct {
	db       *sql.DB
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPostgresCache constructs a PostgreSQL-backed address cache.
func NewPostgresCache(db *sql.DB, cacheTTL time.Duration, metrics *metrics.Metrics) *PostgresCache {
	return &PostgresCache{
		db:       db,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		now:      time.Now,
	}
}

// EnsureSchema creates the cache table if it does not exist.
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create address_cache: %w", err)
	}
	return nil
}

func (c *PostgresCache) FindAddress(ctx context.Context, code domain.PostalCode) (*models.Address, error) {
	cutoff := c.now().Add(-c.cacheTTL)
	var record models.Address
	err := c.db.QueryRowContext(ctx, findAddressQuery, code.String(), cutoff).Scan(
		&record.PostalCode,
		&record.Street,
		&record.Neighborhood,
		&record.City,
		&record.Region,
		&record.Source,
		&record.CheckedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.metrics.RecordCacheMiss()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find address cache: %w", err)
	}
	c.metrics.RecordCacheHit()
	return &record, nil
}

func (c *PostgresCache) SaveAddress(ctx context.Context, code domain.PostalCode, record *models.Address) error {
	if record == nil {
		return fmt.Errorf("address record is required")
	}
	checkedAt := record.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = c.now()
	}
	_, err := c.db.ExecContext(ctx, upsertAddressQuery,
		code.String(),
		record.Street,
		record.Neighborhood,
		record.City,
		record.Region,
		record.Source,
		checkedAt,
	)
	if err != nil {
		return fmt.Errorf("save address cache: %w", err)
	}
	return nil
}

// Truncate removes every cached address.
func (c *PostgresCache) Truncate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "TRUNCATE TABLE address_cache"); err != nil {
		return fmt.Errorf("truncate address_cache: %w", err)
	}
	return nil
}
