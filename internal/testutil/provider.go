package testutil

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeProvider is an in-process Ollama-compatible provider for tests.
// It serves /embed, /generate and /chat/completions with deterministic
// responses and records every request for later inspection.
//
// Thread-safe for concurrent use.
type FakeProvider struct {
	mu sync.Mutex

	server *httptest.Server

	// Dimension of generated embeddings. Must match the schema's vector
	// column for database-backed tests.
	dimension int

	// Canned responses.
	generateResponse string
	chatResponse     string

	// Failure injection: when non-zero, the endpoint replies with this
	// HTTP status instead of a payload.
	embedStatus    int
	generateStatus int
	chatStatus     int

	embedInputs []string
	embedModels []string
	prompts     []string
	chatBodies  []map[string]any
}

// NewFakeProvider starts a fake provider with the given embedding dimension.
// The server is shut down automatically when the test finishes.
func NewFakeProvider(t *testing.T, dimension int) *FakeProvider {
	t.Helper()

	p := &FakeProvider{
		dimension:        dimension,
		generateResponse: "generated answer",
		chatResponse:     "chat answer",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /embed", p.handleEmbed)
	mux.HandleFunc("POST /generate", p.handleGenerate)
	mux.HandleFunc("POST /chat/completions", p.handleChat)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// URL returns the provider base URL.
func (p *FakeProvider) URL() string { return p.server.URL }

// SetGenerateResponse sets the text returned by /generate.
func (p *FakeProvider) SetGenerateResponse(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generateResponse = s
}

// SetChatResponse sets the assistant content returned by /chat/completions.
func (p *FakeProvider) SetChatResponse(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chatResponse = s
}

// FailEmbed makes /embed reply with the given HTTP status.
func (p *FakeProvider) FailEmbed(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedStatus = status
}

// FailGenerate makes /generate reply with the given HTTP status.
func (p *FakeProvider) FailGenerate(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generateStatus = status
}

// EmbedInputs returns a copy of all texts sent to /embed.
func (p *FakeProvider) EmbedInputs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(p.embedInputs))
	copy(cp, p.embedInputs)
	return cp
}

// EmbedModels returns a copy of the model names sent to /embed.
func (p *FakeProvider) EmbedModels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(p.embedModels))
	copy(cp, p.embedModels)
	return cp
}

// Prompts returns a copy of all prompts sent to /generate.
func (p *FakeProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(p.prompts))
	copy(cp, p.prompts)
	return cp
}

// ChatBodies returns a copy of all decoded /chat/completions request bodies.
func (p *FakeProvider) ChatBodies() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]map[string]any, len(p.chatBodies))
	copy(cp, p.chatBodies)
	return cp
}

func (p *FakeProvider) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model string `json:"model"`
		Input string `json:"input"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	p.embedInputs = append(p.embedInputs, body.Input)
	p.embedModels = append(p.embedModels, body.Model)
	status := p.embedStatus
	dim := p.dimension
	p.mu.Unlock()

	if status != 0 {
		http.Error(w, "embed failure injected", status)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"embedding": Embedding(body.Input, dim),
	})
}

func (p *FakeProvider) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	p.prompts = append(p.prompts, body.Prompt)
	status := p.generateStatus
	response := p.generateResponse
	p.mu.Unlock()

	if status != 0 {
		http.Error(w, "generate failure injected", status)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"response": response})
}

func (p *FakeProvider) handleChat(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	p.chatBodies = append(p.chatBodies, body)
	status := p.chatStatus
	response := p.chatResponse
	p.mu.Unlock()

	if status != 0 {
		http.Error(w, "chat failure injected", status)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": response}},
		},
	})
}

// Embedding derives a deterministic unit vector of the given dimension from
// text. Identical texts embed identically (cosine similarity 1), distinct
// texts land elsewhere on the hypersphere, which is enough to make
// similarity search rank an exact content match first.
func Embedding(text string, dimension int) []float32 {
	sum := sha256.Sum256([]byte(text))

	vec := make([]float32, dimension)
	var norm float64
	for i := range vec {
		// Stretch the 32-byte digest over any dimension by re-hashing
		// the block index into the seed.
		var block [8]byte
		binary.BigEndian.PutUint64(block[:], uint64(i))
		h := sha256.Sum256(append(sum[:], block[:]...))
		v := float64(int16(binary.BigEndian.Uint16(h[:2]))) / math.MaxInt16
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
