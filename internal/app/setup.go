package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgrag/pgrag/db"
	"github.com/pgrag/pgrag/internal/config"
	"github.com/pgrag/pgrag/internal/knowledge"
	"github.com/pgrag/pgrag/internal/log"
	"github.com/pgrag/pgrag/internal/ollama"
	"github.com/pgrag/pgrag/internal/rag"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	a.Provider = ollama.New(ollama.Config{Host: cfg.OllamaHost}, logger)

	embedder := knowledge.EmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return a.Provider.Embed(ctx, cfg.EmbedderModel, text)
	})
	a.Knowledge = knowledge.New(knowledge.NewPG(pool, logger), embedder, logger)

	a.Engine = rag.New(a.Knowledge, a.Provider, cfg.ModelName, logger)

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool
// with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
