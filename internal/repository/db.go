// Package repository provides the Postgres persistence layer: the pooled
// connection wrapper, game session rows, the XP ledger, and the cached
// per-user XP totals.
package repository

import (
	"context"
	"fmt"

	"github.com/blueteamacademy/sim-server-go/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB connects to Postgres, verifies the connection, and applies the
// schema migration.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{Pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("database schema ready")

	return db, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Stats returns pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

func (db *DB) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_name TEXT NOT NULL,
		level_id TEXT,
		score INT,
		start_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		end_time TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_game_sessions_user ON game_sessions (user_id);

	CREATE TABLE IF NOT EXISTS xp_ledger (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		xp_change INT NOT NULL,
		balance_before INT NOT NULL,
		balance_after INT NOT NULL,
		reason TEXT NOT NULL,
		session_id UUID UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_xp_ledger_user ON xp_ledger (user_id);

	CREATE TABLE IF NOT EXISTS user_xp (
		user_id TEXT PRIMARY KEY,
		total_xp INT NOT NULL DEFAULT 0
	);
	`
	_, err := db.Pool.Exec(ctx, schema)
	return err
}
