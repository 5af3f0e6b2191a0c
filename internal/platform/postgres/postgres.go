// Package postgres opens the database used by the postgres address cache.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"formcheck/internal/platform/config"
	dErrors "formcheck/pkg/domain-errors"
)

// Open connects with lib/pq and pings once. Returns nil if the DSN is empty.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig, "open postgres")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "postgres ping failed")
	}
	return db, nil
}
