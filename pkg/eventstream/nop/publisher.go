// Package nop is the publisher used when event streaming is disabled.
package nop

import (
	"context"

	"github.com/inklingco/inkling/pkg/eventstream"
)

// Publisher validates its input and otherwise does nothing.
type Publisher struct{}

// NewPublisher creates a new no-op publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishConversation validates input and otherwise does nothing.
func (p *Publisher) PublishConversation(_ context.Context, event *eventstream.ConversationSavedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
