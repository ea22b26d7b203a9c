package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"securequiz/internal/logging"
	"securequiz/internal/quiz/adapters"
	"securequiz/internal/quiz/ports"
)

// OpenStore opens the configured backend and ensures its schema.
func OpenStore(ctx context.Context, cfg StoreConfig, logger logging.Logger) (ports.Store, error) {
	logger = logging.OrNop(logger)
	switch cfg.Backend {
	case "", StoreMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return adapters.NewMemoryStore(), nil

	case StorePostgres:
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("create db pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
		store := adapters.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Quiz store backed by Postgres (max conns %d)", poolCfg.MaxConns)
		return store, nil

	case StoreSQLite:
		store, err := adapters.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("Quiz store backed by SQLite at %s", cfg.SQLitePath)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
