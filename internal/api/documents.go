package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pgrag/pgrag/internal/knowledge"
)

// maxDocumentContentLength bounds stored document size in bytes.
const maxDocumentContentLength = 1 << 20

// documentStore is the knowledge subset the document endpoints need.
type documentStore interface {
	Add(ctx context.Context, content string, metadata map[string]any) (*knowledge.Document, error)
	Get(ctx context.Context, id int64) (*knowledge.Document, error)
}

// documentHandler holds dependencies for the document endpoints.
type documentHandler struct {
	store  documentStore
	logger *slog.Logger
}

type addDocumentRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// documentItem is the JSON representation of a stored document.
type documentItem struct {
	ID        int64          `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

func toDocumentItem(doc *knowledge.Document) documentItem {
	return documentItem{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  doc.Metadata,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
	}
}

// addDocument handles POST /api/v1/documents. The document and its
// embedding are stored in one transaction; an embedding failure leaves
// the store untouched.
func (h *documentHandler) addDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		WriteError(w, http.StatusBadRequest, "missing_content", "field 'content' is required", h.logger)
		return
	}
	if len(req.Content) > maxDocumentContentLength {
		WriteError(w, http.StatusBadRequest, "content_too_long", "content must be 1 MiB or smaller", h.logger)
		return
	}

	doc, err := h.store.Add(r.Context(), req.Content, req.Metadata)
	if err != nil {
		h.logger.Error("adding document", "error", err, "content_len", len(req.Content))
		writeDomainError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, toDocumentItem(doc), h.logger)
}

// getDocument handles GET /api/v1/documents/{id}.
func (h *documentHandler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		WriteError(w, http.StatusBadRequest, "invalid_id", "document ID must be a positive integer", h.logger)
		return
	}

	doc, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Warn("getting document", "error", err, "id", id)
		writeDomainError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toDocumentItem(doc), h.logger)
}
