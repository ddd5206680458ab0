// Package eventstream defines transport-neutral events describing what
// happened to a conversation, for downstream integrations to consume.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/inklingco/inkling/pkg/history"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeConversationSaved is emitted after a conversation is saved
	// to history.
	EventTypeConversationSaved = "inkling.conversation.saved"
)

// ConversationSavedEvent is the payload published after a save.
type ConversationSavedEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	Source        EventSource      `json:"source"`
	Conversation  ConversationMeta `json:"conversation"`
}

// EventSource identifies where the conversation happened.
type EventSource struct {
	Project   string `json:"project,omitempty"`
	Assistant string `json:"assistant,omitempty"`
	Model     string `json:"model,omitempty"`
}

// ConversationMeta summarizes the saved conversation without carrying
// its content.
type ConversationMeta struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Messages   int       `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
	DurationMs int64     `json:"duration_ms"`
	Streaming  bool      `json:"streaming"`
}

// NewConversationSaved builds a v1 event from a saved record. Duration
// runs from the conversation's creation to now.
func NewConversationSaved(rec *history.Record, streaming bool) *ConversationSavedEvent {
	now := time.Now().UTC()
	return &ConversationSavedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeConversationSaved,
		EventID:       uuid.NewString(),
		EmittedAt:     now,
		Source: EventSource{
			Project:   rec.Project,
			Assistant: rec.AssistantName,
			Model:     rec.Model,
		},
		Conversation: ConversationMeta{
			ID:         rec.ID,
			Title:      rec.Title,
			Messages:   len(rec.Messages),
			CreatedAt:  rec.CreatedAt,
			DurationMs: now.Sub(rec.CreatedAt).Milliseconds(),
			Streaming:  streaming,
		},
	}
}
