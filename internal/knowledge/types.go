package knowledge

import (
	"context"
	"time"
)

// DefaultTopK is the number of results returned when no WithTopK option
// is supplied.
const DefaultTopK = 5

// DefaultSearchTimeout bounds a single search (query embedding plus vector
// scan). It must not be tighter than the provider client's own call budget,
// or a cold embedding model can time out a search the provider would have
// completed. Use WithTimeout to tighten it per call.
const DefaultSearchTimeout = 2 * time.Minute

// Document is a stored text document. ID is assigned by the store on
// creation and immutable thereafter. Metadata is an optional JSON-like
// key-value mapping, opaque to search and ranking.
type Document struct {
	ID        int64
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Result is a single similarity search hit. Score is 1 minus the cosine
// distance between the query vector and the document's embedding; higher
// means more similar. Results are transient and never persisted.
type Result struct {
	ID      int64
	Content string
	Score   float64
}

// Embedder converts text to a fixed-length vector. Implementations decide
// dimensionality and numeric scale; the store does not validate either.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int32
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return. Non-positive
// values are ignored and the default of DefaultTopK applies.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = int32(k)
		}
	}
}

// WithTimeout overrides the search timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    DefaultTopK,
		timeout: DefaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
