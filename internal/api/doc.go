// Package api provides the JSON REST API server for pgrag.
//
// # Architecture
//
// The server uses Go 1.22+ method-and-pattern routing with a layered
// middleware stack:
//
//	Recovery → RequestID → Logging → Metrics → RateLimit → Routes
//
// Health probes (/health, /ready) and /metrics bypass the middleware
// stack via a top-level mux, keeping probes fast and unthrottled.
//
// # Endpoints
//
// Probes and metrics (no middleware):
//   - GET /health  — returns {"status":"ok"}
//   - GET /ready   — pings the database pool
//   - GET /metrics — Prometheus exposition
//
// Core operations:
//   - POST /api/v1/embed          — embed text, no persistence
//   - POST /api/v1/documents      — store document + embedding atomically
//   - GET  /api/v1/documents/{id} — fetch a stored document
//   - POST /api/v1/search         — similarity search over stored documents
//   - POST /api/v1/rag/query      — retrieval-augmented answer generation
//   - POST /api/v1/chat           — chat completion pass-through
//
// # Error Handling
//
// All responses use an envelope format:
//
//	Success: {"data": <payload>}
//	Error:   {"error": {"code": "...", "message": "..."}}
//
// Provider failures (unreachable host or upstream error status) map to
// 502 Bad Gateway; unknown document IDs map to 404; storage failures map
// to 500; malformed input maps to 400.
package api
