package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// readinessTimeout bounds the database ping in the /ready probe.
const readinessTimeout = 2 * time.Second

// health is a static liveness probe for Docker/Kubernetes.
func health(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness pings the database pool. A nil pool reports ready, so the
// server can run without storage in tests.
func readiness(pool *pgxpool.Pool, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("readiness probe failed", "error", err)
				WriteError(w, http.StatusServiceUnavailable, "not_ready", "database is unreachable", logger)
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}
