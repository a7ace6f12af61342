package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/deckrealms/lanebattle/internal/config"
)

// DB wraps the pgx connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB connects to PostgreSQL and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("database connected", zap.Int32("max_conns", poolCfg.MaxConns))
	return &DB{pool: pool, logger: logger}, nil
}

// Stats returns pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

// Close releases every connection.
func (db *DB) Close() {
	db.pool.Close()
}

// Migrate creates the tables this service owns when they are missing.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	db.logger.Info("database schema ready", zap.Int("migrations", len(migrations)))
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS owned_cards (
		id                   UUID PRIMARY KEY,
		owner                TEXT NOT NULL,
		faction              TEXT NOT NULL,
		rank                 TEXT NOT NULL,
		council              TEXT NOT NULL DEFAULT '',
		tier                 INTEGER NOT NULL DEFAULT 0,
		battles_participated INTEGER NOT NULL DEFAULT 0,
		battles_won          INTEGER NOT NULL DEFAULT 0,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS owned_cards_owner_faction_idx ON owned_cards (owner, faction)`,
	`CREATE TABLE IF NOT EXISTS battle_results (
		battle_id    UUID PRIMARY KEY,
		owner        TEXT NOT NULL,
		winner       TEXT NOT NULL,
		reason       TEXT NOT NULL,
		by_power     BOOLEAN NOT NULL,
		rounds       INTEGER NOT NULL,
		player_hp    INTEGER NOT NULL,
		enemy_hp     INTEGER NOT NULL,
		player_power INTEGER NOT NULL,
		enemy_power  INTEGER NOT NULL,
		player_stats JSONB NOT NULL,
		enemy_stats  JSONB NOT NULL,
		checksum     TEXT NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS battle_results_owner_idx ON battle_results (owner, finished_at DESC)`,
}
