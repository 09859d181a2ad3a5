package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgrag/pgrag/internal/knowledge"
	"github.com/pgrag/pgrag/internal/ollama"
	"github.com/pgrag/pgrag/internal/rag"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Provider   *ollama.Client   // Required
	Store      *knowledge.Store // Required
	Engine     *rag.Engine      // Required
	Pool       *pgxpool.Pool    // Optional: nil disables the database ping in /ready
	Model      string           // Generation model; chat fallback when the request omits one
	EmbedModel string           // Embedding model; must match the model the store persists with
	TrustProxy bool             // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst  int              // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Provider == nil {
		return nil, errors.New("provider client is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("knowledge store is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("rag engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Embedding must use the same model as the store's embedder, or /embed
	// vectors are incomparable to persisted ones.
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = cfg.Model
	}

	eh := &embedHandler{provider: cfg.Provider, model: embedModel, logger: logger}
	dh := &documentHandler{store: cfg.Store, logger: logger}
	sh := &searchHandler{store: cfg.Store, logger: logger}
	rh := &ragHandler{engine: cfg.Engine, logger: logger}
	ch := &chatHandler{provider: cfg.Provider, model: cfg.Model, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/embed", eh.embed)
	mux.HandleFunc("POST /api/v1/documents", dh.addDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}", dh.getDocument)
	mux.HandleFunc("POST /api/v1/search", sh.search)
	mux.HandleFunc("POST /api/v1/rag/query", rh.query)
	mux.HandleFunc("POST /api/v1/chat", ch.chat)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)
	m := newMetrics()

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → Metrics → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in
	// log attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = metricsMiddleware(m)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux keeps probes and metrics outside the middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("GET /metrics", m.handler())
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
