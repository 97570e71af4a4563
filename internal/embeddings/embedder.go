package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput is returned when there is nothing to embed.
	ErrEmptyInput = errors.New("nothing to embed")

	// ErrInvalidConfig wraps provider configuration problems.
	ErrInvalidConfig = errors.New("invalid embedding configuration")

	// ErrEmbeddingFailed wraps failures of the underlying model or server.
	ErrEmbeddingFailed = errors.New("embedding failed")
)

// Embedder turns text into vectors. Documents and queries are separate
// calls since some models prefix them differently.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder for a single named model. Resources record
// Model() so later searches can refuse vectors from another model.
type Provider interface {
	Embedder
	Model() string
	Dimension() int
	Close() error
}
