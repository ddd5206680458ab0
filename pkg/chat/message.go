package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/inklingco/inkling/pkg/rag"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a conversation.
//
// While an answer streams in, the assistant message holding it is
// Temporary with placeholder content; the first delta replaces the
// placeholder and clears Temporary. References are attached when the
// message is created and never modified afterwards.
type Message struct {
	ID         string
	Role       Role
	Content    string
	References []rag.Reference

	// Temporary marks a placeholder that has received no content yet.
	// Temporary messages are never persisted.
	Temporary bool

	// Incomplete marks an answer whose stream died partway. The partial
	// content is kept and annotated instead of discarded.
	Incomplete bool

	CreatedAt time.Time
}

func newMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
