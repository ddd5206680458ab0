// Package inmemory provides a map-backed history driver for tests and
// for running with history disabled.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/inklingco/inkling/pkg/history"
)

// Driver implements history.Driver with an in-memory map.
type Driver struct {
	mu   sync.RWMutex
	recs map[string]*history.Record
}

// NewDriver creates an empty in-memory store.
func NewDriver() *Driver {
	return &Driver{
		recs: make(map[string]*history.Record),
	}
}

// SaveConversation stores rec, replacing any previous save of the same
// conversation.
func (d *Driver) SaveConversation(_ context.Context, rec *history.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record needs an id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.recs[rec.ID] = rec
	return nil
}

// ListConversations returns summaries, newest first.
func (d *Driver) ListConversations(_ context.Context) ([]*history.Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sums := make([]*history.Summary, 0, len(d.recs))
	for _, rec := range d.recs {
		sums = append(sums, &history.Summary{
			ID:            rec.ID,
			AssistantName: rec.AssistantName,
			Model:         rec.Model,
			Title:         rec.Title,
			Project:       rec.Project,
			CreatedAt:     rec.CreatedAt,
			Messages:      len(rec.Messages),
		})
	}

	sort.Slice(sums, func(i, j int) bool {
		if sums[i].CreatedAt.Equal(sums[j].CreatedAt) {
			return sums[i].ID < sums[j].ID
		}
		return sums[i].CreatedAt.After(sums[j].CreatedAt)
	})

	return sums, nil
}

// GetConversation retrieves a full record by id.
func (d *Driver) GetConversation(_ context.Context, id string) (*history.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.recs[id]
	if !ok {
		return nil, history.NotFoundError{ID: id}
	}

	return rec, nil
}

// DeleteConversation removes a record.
func (d *Driver) DeleteConversation(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.recs[id]; !ok {
		return history.NotFoundError{ID: id}
	}

	delete(d.recs, id)
	return nil
}

// Count returns the number of stored conversations.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.recs)
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}
