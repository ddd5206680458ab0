// Package history defines the local store of finished conversations.
package history

import (
	"context"
	"time"

	"github.com/inklingco/inkling/pkg/chat"
	"github.com/inklingco/inkling/pkg/git"
	"github.com/inklingco/inkling/pkg/rag"
)

// Driver persists and retrieves conversation records. Implementations
// live in the subpackages; pick one through historyutils.NewDriver.
type Driver interface {
	// SaveConversation stores rec, replacing any previous save of the
	// same conversation.
	SaveConversation(ctx context.Context, rec *Record) error

	// ListConversations returns summaries, newest first.
	ListConversations(ctx context.Context) ([]*Summary, error)

	// GetConversation retrieves a full record by id. Returns a
	// NotFoundError when the id is unknown.
	GetConversation(ctx context.Context, id string) (*Record, error)

	// DeleteConversation removes a record and its messages. Returns a
	// NotFoundError when the id is unknown.
	DeleteConversation(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}

// Record is one saved conversation.
type Record struct {
	ID            string
	AssistantID   string
	AssistantName string
	Model         string
	Title         string
	Project       string
	CreatedAt     time.Time
	Messages      []RecordMessage
}

// RecordMessage is one saved message. Position fixes the order.
type RecordMessage struct {
	Role       string
	Content    string
	References []rag.Reference
	Incomplete bool
	Position   int
}

// Summary is the listing view of a record.
type Summary struct {
	ID            string
	AssistantName string
	Model         string
	Title         string
	Project       string
	CreatedAt     time.Time
	Messages      int
}

// FromConversation converts a conversation into a Record, dropping
// placeholders and local notices and numbering what remains.
func FromConversation(conv *chat.Conversation) *Record {
	rec := &Record{
		ID:            conv.ID(),
		AssistantID:   conv.State().AssistantID,
		AssistantName: conv.AssistantName(),
		Model:         conv.Model(),
		Title:         conv.Title(),
		Project:       git.Project(),
		CreatedAt:     conv.CreatedAt(),
	}

	for _, m := range conv.Messages() {
		if m.Temporary || m.Role == chat.RoleSystem {
			continue
		}
		rec.Messages = append(rec.Messages, RecordMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			References: m.References,
			Incomplete: m.Incomplete,
			Position:   len(rec.Messages),
		})
	}

	return rec
}
