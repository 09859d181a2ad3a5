package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// answerer is the RAG engine subset the query endpoint needs.
type answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// ragHandler holds dependencies for the RAG query endpoint.
type ragHandler struct {
	engine answerer
	logger *slog.Logger
}

type ragQueryRequest struct {
	Query string `json:"query"`
}

type ragQueryResponse struct {
	Answer string `json:"answer"`
}

// query handles POST /api/v1/rag/query: retrieves the most similar
// stored documents and generates an answer grounded in them.
func (h *ragHandler) query(w http.ResponseWriter, r *http.Request) {
	var req ragQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "field 'query' is required", h.logger)
		return
	}
	if len(req.Query) > maxSearchQueryLength {
		WriteError(w, http.StatusBadRequest, "query_too_long", "query must be 8192 bytes or fewer", h.logger)
		return
	}

	answer, err := h.engine.Answer(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("answering query", "error", err, "query_len", len(req.Query))
		writeDomainError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, ragQueryResponse{Answer: answer}, h.logger)
}
