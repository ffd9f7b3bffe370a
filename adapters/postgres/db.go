package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"greenmetrics/internal/config"
	"greenmetrics/internal/errors"
)

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping database", err)
	}
	return db, nil
}
