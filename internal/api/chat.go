package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pgrag/pgrag/internal/ollama"
)

// maxChatMessages bounds conversation length per request.
const maxChatMessages = 100

// defaultChatTemperature applies when the request omits temperature.
const defaultChatTemperature = 0.7

// chatter is the provider subset the chat endpoint needs.
type chatter interface {
	Chat(ctx context.Context, req ollama.ChatRequest) (string, error)
}

// chatHandler holds dependencies for the chat pass-through endpoint.
type chatHandler struct {
	provider chatter
	model    string
	logger   *slog.Logger
}

type chatMessageItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompleteRequest struct {
	Model       string            `json:"model"`
	Messages    []chatMessageItem `json:"messages"`
	Temperature *float64          `json:"temperature"`
	// Seed is a pointer so an explicit 0 is forwarded while an absent
	// seed is omitted from the provider call.
	Seed *int64 `json:"seed"`
}

type chatCompleteResponse struct {
	Response string `json:"response"`
}

// chat handles POST /api/v1/chat: forwards the conversation to the
// provider unchanged and returns the assistant's reply.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if len(req.Messages) == 0 {
		WriteError(w, http.StatusBadRequest, "missing_messages", "field 'messages' must not be empty", h.logger)
		return
	}
	if len(req.Messages) > maxChatMessages {
		WriteError(w, http.StatusBadRequest, "too_many_messages", "at most 100 messages per request", h.logger)
		return
	}

	messages := make([]ollama.Message, len(req.Messages))
	for i, m := range req.Messages {
		switch m.Role {
		case ollama.RoleSystem, ollama.RoleUser, ollama.RoleAssistant:
		default:
			WriteError(w, http.StatusBadRequest, "invalid_role",
				"message role must be system, user or assistant", h.logger)
			return
		}
		if strings.TrimSpace(m.Content) == "" {
			WriteError(w, http.StatusBadRequest, "missing_content", "message content must not be empty", h.logger)
			return
		}
		messages[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}

	model := req.Model
	if model == "" {
		model = h.model
	}

	temperature := defaultChatTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	reply, err := h.provider.Chat(r.Context(), ollama.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		Seed:        req.Seed,
	})
	if err != nil {
		h.logger.Error("chat completion", "error", err, "messages", len(messages))
		writeDomainError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, chatCompleteResponse{Response: reply}, h.logger)
}
