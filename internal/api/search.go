package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pgrag/pgrag/internal/knowledge"
)

const (
	// maxSearchQueryLength is the maximum allowed query length in bytes.
	maxSearchQueryLength = 8 * 1024

	// maxSearchTopK caps a single search's result window.
	maxSearchTopK = 100
)

// searcher is the knowledge subset the search endpoint needs.
type searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// searchHandler holds dependencies for the similarity search endpoint.
type searchHandler struct {
	store  searcher
	logger *slog.Logger
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

// searchResultItem is the JSON representation of a search result.
// Score is 1 minus the cosine distance to the query vector.
type searchResultItem struct {
	ID      int64   `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// search handles POST /api/v1/search. top_k defaults to 5 when absent;
// zero or negative values are rejected rather than silently corrected.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
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

	opts := []knowledge.SearchOption{}
	if req.TopK != nil {
		if *req.TopK < 1 {
			WriteError(w, http.StatusBadRequest, "invalid_top_k", "top_k must be a positive integer", h.logger)
			return
		}
		if *req.TopK > maxSearchTopK {
			WriteError(w, http.StatusBadRequest, "invalid_top_k", "top_k must be 100 or less", h.logger)
			return
		}
		opts = append(opts, knowledge.WithTopK(*req.TopK))
	}

	results, err := h.store.Search(r.Context(), req.Query, opts...)
	if err != nil {
		h.logger.Error("searching documents", "error", err, "query_len", len(req.Query))
		writeDomainError(w, err, h.logger)
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		items[i] = searchResultItem{
			ID:      res.ID,
			Content: res.Content,
			Score:   res.Score,
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"results": items}, h.logger)
}
