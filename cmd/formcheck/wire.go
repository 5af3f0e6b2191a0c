package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"formcheck/internal/address/adapters/viacep"
	addressmetrics "formcheck/internal/address/metrics"
	"formcheck/internal/address/ports"
	"formcheck/internal/address/store"
	"formcheck/internal/messages"
	"formcheck/internal/platform/config"
	"formcheck/internal/platform/postgres"
	platformredis "formcheck/internal/platform/redis"
	httptransport "formcheck/internal/transport/http"
	"formcheck/pkg/platform/circuit"
)

// cacheBackend is the configured address cache with its health checks and
// whatever must be released on exit.
type cacheBackend struct {
	cache   ports.Cache
	checks  map[string]httptransport.HealthCheck
	closers []func() error
}

func (b *cacheBackend) close() {
	for _, c := range b.closers {
		_ = c()
	}
}

func buildCache(ctx context.Context, cfg *config.Config, m *addressmetrics.Metrics) (*cacheBackend, error) {
	b := &cacheBackend{checks: map[string]httptransport.HealthCheck{}}

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		b.cache = store.NewInMemoryCache(cfg.Cache.TTL, m)

	case config.CacheRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.cache = store.NewRedisCache(client.Client, cfg.Cache.TTL, m)
		b.checks["redis"] = client.Health
		b.closers = append(b.closers, client.Close)

	case config.CachePostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		pc := store.NewPostgresCache(db, cfg.Cache.TTL, m)
		if err := pc.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.cache = pc
		b.checks["postgres"] = pingCheck(db)
		b.closers = append(b.closers, db.Close)
	}
	return b, nil
}

func pingCheck(db *sql.DB) httptransport.HealthCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func buildLookup(cfg *config.Config, log *slog.Logger) *viacep.Client {
	breaker := circuit.New("viacep",
		circuit.WithFailureThreshold(cfg.Lookup.BreakerThreshold),
		circuit.WithCooldown(cfg.Lookup.BreakerCooldown),
	)
	return viacep.New(cfg.Lookup.BaseURL, cfg.Lookup.Timeout,
		viacep.WithBreaker(breaker),
		viacep.WithLogger(log),
		viacep.WithHTTPClient(&http.Client{Timeout: cfg.Lookup.Timeout}),
	)
}

func buildCatalog(cfg *config.Config) (*messages.Catalog, error) {
	if cfg.Messages.Catalog == "" {
		return messages.Default(), nil
	}
	return messages.LoadFile(cfg.Messages.Catalog)
}
