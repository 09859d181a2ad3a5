package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pgrag/pgrag/internal/log"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Host: srv.URL}, log.NewNop()), srv
}

func TestEmbed(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	}))

	vec, err := client.Embed(context.Background(), "mistral", "hello world")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3-dimensional vector, got %d", len(vec))
	}
	if gotBody["model"] != "mistral" {
		t.Errorf("expected model mistral in request, got %v", gotBody["model"])
	}
	if gotBody["input"] != "hello world" {
		t.Errorf("expected input in request, got %v", gotBody["input"])
	}
}

func TestEmbed_EmptyTextPassedThrough(t *testing.T) {
	// Empty input is not pre-validated; the provider decides.
	var gotInput any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotInput = body["input"]
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.5}})
	}))

	if _, err := client.Embed(context.Background(), "mistral", ""); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if gotInput != "" {
		t.Errorf("expected empty input forwarded, got %v", gotInput)
	}
}

func TestEmbed_MissingField(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"unexpected": true})
	}))

	_, err := client.Embed(context.Background(), "mistral", "text")
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if perr.StatusCode != 0 {
		t.Errorf("expected status 0 for malformed payload, got %d", perr.StatusCode)
	}
}

func TestEmbed_ErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))

	_, err := client.Embed(context.Background(), "nope", "text")
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", perr.StatusCode)
	}
}

func TestEmbed_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // Connection refused from here on.
	client := New(Config{Host: srv.URL}, log.NewNop())

	_, err := client.Embed(context.Background(), "mistral", "text")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "Paris."})
	}))

	answer, err := client.Generate(context.Background(), GenerateRequest{
		Model:       "mistral",
		Prompt:      "What is the capital of France?",
		Temperature: 0.7,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Paris." {
		t.Errorf("Generate() = %q, want %q", answer, "Paris.")
	}
	if gotBody["max_tokens"] != float64(256) {
		t.Errorf("expected max_tokens 256 in request, got %v", gotBody["max_tokens"])
	}
	if gotBody["temperature"] != 0.7 {
		t.Errorf("expected temperature 0.7 in request, got %v", gotBody["temperature"])
	}
}

func TestGenerate_MissingField(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))

	_, err := client.Generate(context.Background(), GenerateRequest{Model: "mistral", Prompt: "q"})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
}

func TestChat_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello"}},
			},
		})
	}))

	got, err := client.Chat(context.Background(), ChatRequest{
		Model:       "mistral",
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Chat() = %q, want %q", got, "hello")
	}
}

func TestChat_MessageOrderPreserved(t *testing.T) {
	var gotBody struct {
		Messages []Message `json:"messages"`
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))

	messages := []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
		{Role: RoleUser, Content: "third"},
	}
	if _, err := client.Chat(context.Background(), ChatRequest{Model: "m", Messages: messages}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if len(gotBody.Messages) != len(messages) {
		t.Fatalf("expected %d messages forwarded, got %d", len(messages), len(gotBody.Messages))
	}
	for i, msg := range messages {
		if gotBody.Messages[i] != msg {
			t.Errorf("message %d = %+v, want %+v", i, gotBody.Messages[i], msg)
		}
	}
}

func TestChat_SeedHandling(t *testing.T) {
	seedZero := int64(0)
	seedFortyTwo := int64(42)

	tests := []struct {
		name     string
		seed     *int64
		wantKey  bool
		wantSeed float64
	}{
		{name: "nil seed omitted", seed: nil, wantKey: false},
		{name: "explicit zero sent", seed: &seedZero, wantKey: true, wantSeed: 0},
		{name: "explicit value sent", seed: &seedFortyTwo, wantKey: true, wantSeed: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"role": "assistant", "content": "ok"}},
					},
				})
			}))

			_, err := client.Chat(context.Background(), ChatRequest{
				Model:    "m",
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
				Seed:     tt.seed,
			})
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}

			seed, present := gotBody["seed"]
			if present != tt.wantKey {
				t.Fatalf("seed present = %v, want %v (body: %v)", present, tt.wantKey, gotBody)
			}
			if tt.wantKey && seed != tt.wantSeed {
				t.Errorf("seed = %v, want %v", seed, tt.wantSeed)
			}
		})
	}
}

func TestChat_EmptyChoices(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))

	_, err := client.Chat(context.Background(), ChatRequest{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
}

func TestCloseIdleConnections(t *testing.T) {
	closed := make(chan struct{}, 1)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.5}})
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateClosed {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	client := New(Config{Host: srv.URL}, log.NewNop())
	if _, err := client.Embed(context.Background(), "mistral", "hi"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	client.CloseIdleConnections()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("keep-alive connection still open after CloseIdleConnections")
	}
}
