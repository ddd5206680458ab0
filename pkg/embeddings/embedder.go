// Package embeddings turns text into vectors for semantic search.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding wraps every failure to produce an embedding, whatever the
// provider.
var ErrEmbedding = errors.New("embedding failed")

// Embedder converts text into vector embeddings.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
