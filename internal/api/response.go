package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pgrag/pgrag/internal/knowledge"
	"github.com/pgrag/pgrag/internal/ollama"
)

// errorBody is the payload inside the error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a success response wrapped in a {"data": ...} envelope.
// Uses buffer-first strategy so headers are only sent after successful
// encoding, allowing a proper 500 if encoding fails.
func WriteJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	writeEnvelope(w, status, map[string]any{"data": data}, logger)
}

// WriteError writes an error response wrapped in an {"error": ...} envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	writeEnvelope(w, status, map[string]any{"error": errorBody{Code: code, Message: message}}, logger)
}

func writeEnvelope(w http.ResponseWriter, status int, envelope any, logger *slog.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(envelope); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// writeDomainError maps domain errors to HTTP responses.
// Call sites handle their own validation errors (400) before reaching here.
func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var provErr *ollama.ProviderError
	switch {
	case errors.Is(err, ollama.ErrUnavailable):
		WriteError(w, http.StatusBadGateway, "provider_unavailable", "model provider is unreachable", logger)
	case errors.As(err, &provErr):
		msg := provErr.Message
		if msg == "" {
			msg = "model provider returned an error"
		}
		WriteError(w, http.StatusBadGateway, "provider_error", msg, logger)
	case errors.Is(err, knowledge.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "document not found", logger)
	case errors.Is(err, knowledge.ErrPersistence):
		WriteError(w, http.StatusInternalServerError, "storage_error", "failed to persist document", logger)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
