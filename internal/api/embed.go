package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// maxEmbedTextLength bounds embedding input to keep provider calls sane.
const maxEmbedTextLength = 32 * 1024

// embedder is the provider subset the embed endpoint needs.
type embedder interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// embedHandler holds dependencies for the embed endpoint.
type embedHandler struct {
	provider embedder
	model    string
	logger   *slog.Logger
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// embed handles POST /api/v1/embed. Returns the raw embedding vector
// without persisting anything.
func (h *embedHandler) embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteError(w, http.StatusBadRequest, "missing_text", "field 'text' is required", h.logger)
		return
	}
	if len(req.Text) > maxEmbedTextLength {
		WriteError(w, http.StatusBadRequest, "text_too_long", "text must be 32768 bytes or fewer", h.logger)
		return
	}

	embedding, err := h.provider.Embed(r.Context(), h.model, req.Text)
	if err != nil {
		h.logger.Error("embedding text", "error", err, "text_len", len(req.Text))
		writeDomainError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, embedResponse{Embedding: embedding}, h.logger)
}
