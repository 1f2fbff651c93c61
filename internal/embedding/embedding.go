// Package embedding provides pluggable text-to-vector embedding backends.
package embedding

import (
	"context"
	"fmt"
)

// Embedding is the interface every embedding backend implements. Vector
// dimensionality is fixed per backend instance; all vectors returned by one
// instance have the same length.
type Embedding interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates embedding vectors for a batch of texts, preserving
	// input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// New creates an embedding backend for the given provider.
// baseURL is optional and only used by providers that serve over HTTP locally.
func New(provider, model, apiKey, baseURL string) (Embedding, error) {
	switch provider {
	case "openai":
		return NewOpenAIModel(apiKey, model)
	case "ollama":
		return NewOllamaModel(model, baseURL)
	case "hash":
		return NewHashModel(DefaultHashDimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
