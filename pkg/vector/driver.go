// Package vector defines the embedding store used for semantic search
// over conversation history.
package vector

import "context"

// Document is one stored embedding and the conversation it points at.
type Document struct {
	// ID uniquely identifies the document. IDs must be UUIDs so every
	// driver can store them natively.
	ID string

	// ConversationID is the history record this embedding indexes.
	ConversationID string

	// Embedding is the vector representation of the conversation.
	Embedding []float32
}

// QueryResult is a search hit.
type QueryResult struct {
	Document

	// Score is the similarity score, higher is more similar.
	Score float32
}

// Driver stores and searches embeddings.
type Driver interface {
	// Add stores documents. A document with an existing ID replaces
	// the stored one.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK documents most similar to embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases the driver's resources.
	Close() error
}
