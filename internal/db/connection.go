// Package db provides the postgres connection pool used by the repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/virtustage/creditcore/internal/config"

	// Registers the postgres driver with database/sql.
	_ "github.com/lib/pq"
)

// DB wraps the connection pool so callers get logging on lifecycle events.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Connect opens the pool, applies the configured limits and verifies the
// database is reachable before returning.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres at %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("connected to postgres",
		"host", cfg.Host,
		"database", cfg.DBName,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return &DB{DB: pool, logger: logger}, nil
}

// Close shuts down the pool.
func (db *DB) Close() error {
	db.logger.Info("closing postgres pool")
	return db.DB.Close()
}
