// Package rag composes retrieval and generation into a single
// "answer a question grounded in stored documents" operation.
//
// The pipeline is strictly sequential: embed the query, retrieve the top
// matches, assemble the prompt, generate. A failure at any step aborts the
// whole operation — there is no fallback to ungrounded generation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgrag/pgrag/internal/knowledge"
	"github.com/pgrag/pgrag/internal/ollama"
)

// Generation parameters are fixed for the RAG pathway, independent of any
// caller-supplied settings on other endpoints.
const (
	// RetrievalTopK is the number of documents retrieved for context.
	RetrievalTopK = 5

	generationTemperature = 0.7
	generationMaxTokens   = 256
)

// Retriever returns stored documents ranked by similarity to a query.
// *knowledge.Store satisfies this.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Generator produces a completion for a prompt. *ollama.Client satisfies
// this.
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (string, error)
}

// Engine answers questions grounded in retrieved context.
type Engine struct {
	retriever Retriever
	generator Generator
	model     string
	logger    *slog.Logger
}

// New creates an Engine generating with the given model. logger may be nil.
func New(retriever Retriever, generator Generator, model string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		retriever: retriever,
		generator: generator,
		model:     model,
		logger:    logger,
	}
}

// Answer retrieves the documents most similar to query, assembles them into
// a prompt and returns the generated answer.
//
// Zero retrieved documents is not an error: the prompt proceeds with an
// empty context block.
func (e *Engine) Answer(ctx context.Context, query string) (string, error) {
	results, err := e.retriever.Search(ctx, query, knowledge.WithTopK(RetrievalTopK))
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	prompt := BuildPrompt(contents, query)

	answer, err := e.generator.Generate(ctx, ollama.GenerateRequest{
		Model:       e.model,
		Prompt:      prompt,
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	e.logger.Debug("answered query",
		"query_length", len(query),
		"context_documents", len(results),
		"answer_length", len(answer))
	return answer, nil
}

// BuildPrompt assembles the generation prompt: retrieved contents in ranked
// order separated by blank lines, then the literal question, then the
// answer cue.
func BuildPrompt(contents []string, query string) string {
	context := strings.Join(contents, "\n\n")
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\nAnswer:", context, query)
}
