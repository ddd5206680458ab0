package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder returns canned embeddings and records what it was asked to
// embed.
type MockEmbedder struct {
	// Embeddings maps input text to the vector to return.
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input matches.
	FailOn string

	// Calls records every input passed to Embed, in order.
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Calls = append(m.Calls, text)

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}
