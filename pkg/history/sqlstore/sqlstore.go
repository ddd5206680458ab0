// Package sqlstore implements the history driver over database/sql.
// The sqlite, postgres, and libsql drivers are thin wrappers that open
// the right connection and hand it here with their dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/rag"
)

// Dialect selects the schema variant and placeholder style.
type Dialect int

const (
	// SQLite covers sqlite and libsql connections.
	SQLite Dialect = iota

	// Postgres uses $N placeholders and timestamptz columns.
	Postgres
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	assistant_id TEXT NOT NULL DEFAULT '',
	assistant_name TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	project TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	refs TEXT NOT NULL DEFAULT '[]',
	incomplete BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (conversation_id, position)
);
CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	assistant_id TEXT NOT NULL DEFAULT '',
	assistant_name TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	project TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	refs TEXT NOT NULL DEFAULT '[]',
	incomplete BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (conversation_id, position)
);
CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);
`

// Store implements history.Driver over an open *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// New wraps db. The caller keeps ownership until Close.
func New(db *sql.DB, dialect Dialect, log *slog.Logger) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		log:     log,
	}
}

// Migrate creates the schema. Append-only: existing tables are left
// alone.
func (s *Store) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == Postgres {
		schema = postgresSchema
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// rebind rewrites ? placeholders to $N for postgres. The queries here
// never carry a literal question mark, so a byte scan is enough.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// SaveConversation stores rec, replacing any previous save of the same
// conversation.
func (s *Store) SaveConversation(ctx context.Context, rec *history.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record needs an id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM messages WHERE conversation_id = ?`), rec.ID,
	); err != nil {
		return fmt.Errorf("clearing old messages: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM conversations WHERE id = ?`), rec.ID,
	); err != nil {
		return fmt.Errorf("clearing old conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO conversations (id, assistant_id, assistant_name, model, title, project, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.AssistantID, rec.AssistantName, rec.Model, rec.Title, rec.Project, rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}

	for i, m := range rec.Messages {
		refs, err := marshalRefs(m.References)
		if err != nil {
			return fmt.Errorf("serializing references for message %d: %w", i, err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO messages (conversation_id, position, role, content, refs, incomplete)
			VALUES (?, ?, ?, ?, ?, ?)`),
			rec.ID, m.Position, m.Role, m.Content, refs, m.Incomplete,
		); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.log.Debug("saved conversation",
		slog.String("id", rec.ID),
		slog.Int("messages", len(rec.Messages)),
	)

	return nil
}

// ListConversations returns summaries, newest first.
func (s *Store) ListConversations(ctx context.Context) ([]*history.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.id,
			c.assistant_name,
			c.model,
			c.title,
			c.project,
			c.created_at,
			COUNT(m.conversation_id)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var sums []*history.Summary
	for rows.Next() {
		sum := &history.Summary{}
		if err := rows.Scan(
			&sum.ID, &sum.AssistantName, &sum.Model, &sum.Title,
			&sum.Project, &sum.CreatedAt, &sum.Messages,
		); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		sums = append(sums, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}

	return sums, nil
}

// GetConversation retrieves a full record by id.
func (s *Store) GetConversation(ctx context.Context, id string) (*history.Record, error) {
	rec := &history.Record{}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, assistant_id, assistant_name, model, title, project, created_at
		FROM conversations
		WHERE id = ?`), id,
	).Scan(
		&rec.ID, &rec.AssistantID, &rec.AssistantName, &rec.Model,
		&rec.Title, &rec.Project, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT position, role, content, refs, incomplete
		FROM messages
		WHERE conversation_id = ?
		ORDER BY position`), id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m    history.RecordMessage
			refs []byte
		)
		if err := rows.Scan(&m.Position, &m.Role, &m.Content, &refs, &m.Incomplete); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.References, err = unmarshalRefs(refs)
		if err != nil {
			return nil, fmt.Errorf("parsing references at position %d: %w", m.Position, err)
		}
		rec.Messages = append(rec.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return rec, nil
}

// DeleteConversation removes a record and its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM messages WHERE conversation_id = ?`), id,
	); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM conversations WHERE id = ?`), id,
	)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return history.NotFoundError{ID: id}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.log.Debug("deleted conversation", slog.String("id", id))

	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalRefs(refs []rag.Reference) ([]byte, error) {
	if len(refs) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(refs)
}

func unmarshalRefs(data []byte) ([]rag.Reference, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var refs []rag.Reference
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}
