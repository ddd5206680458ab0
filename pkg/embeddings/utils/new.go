// Package embeddingutils builds embedders from configuration values.
package embeddingutils

import (
	"fmt"

	"github.com/inklingco/inkling/pkg/embeddings"
	"github.com/inklingco/inkling/pkg/embeddings/ollama"
)

// NewEmbedderOpts selects and configures an embedder.
type NewEmbedderOpts struct {
	// Provider picks the implementation. "ollama" is the only one, and
	// the default.
	Provider string
	// URL is the provider endpoint. Empty uses the provider's default.
	URL string
	// Model is the embedding model name. Empty uses the provider's
	// default.
	Model string
}

// NewEmbedder builds the embedder named in the options.
func NewEmbedder(o NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.Provider {
	case "ollama", "":
		return ollama.NewEmbedder(ollama.Config{
			BaseURL: o.URL,
			Model:   o.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.Provider)
	}
}
