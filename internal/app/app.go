// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles the provider client, database pool,
// knowledge store and RAG engine from configuration. Setup initializes
// everything in dependency order and Close releases it in reverse.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgrag/pgrag/internal/config"
	"github.com/pgrag/pgrag/internal/knowledge"
	"github.com/pgrag/pgrag/internal/log"
	"github.com/pgrag/pgrag/internal/ollama"
	"github.com/pgrag/pgrag/internal/rag"
)

// App is the core application container.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Provider  *ollama.Client
	DBPool    *pgxpool.Pool
	Knowledge *knowledge.Store
	Engine    *rag.Engine
}

// Close releases all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Debug("database pool closed")
		}
	}
	if a.Provider != nil {
		a.Provider.CloseIdleConnections()
		if a.Logger != nil {
			a.Logger.Debug("provider connections released")
		}
	}
	return nil
}
