// Package search runs semantic queries over stored conversations. It is
// shared by the CLI search command, the REST endpoint, and the MCP tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/inklingco/inkling/pkg/chat"
	"github.com/inklingco/inkling/pkg/embeddings"
	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/utils"
	"github.com/inklingco/inkling/pkg/vector"
)

const (
	// DefaultTopK is the result count used when the caller passes none.
	DefaultTopK = 5

	previewWidth = 160

	// digestLimit caps the text embedded per conversation. Embedding
	// models truncate long inputs anyway, so there is no point shipping
	// a whole transcript.
	digestLimit = 8000
)

// Input carries the arguments of a search request.
type Input struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Result is one matching conversation.
type Result struct {
	ConversationID string    `json:"conversation_id"`
	Score          float32   `json:"score"`
	Title          string    `json:"title"`
	Preview        string    `json:"preview"`
	Assistant      string    `json:"assistant,omitempty"`
	Model          string    `json:"model,omitempty"`
	Project        string    `json:"project,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Messages       int       `json:"messages"`
}

// Output is the answer to a search request.
type Output struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Searcher ties an embedder, a vector store, and conversation history
// together behind the search and indexing operations.
type Searcher struct {
	embedder embeddings.Embedder
	vectors  vector.Driver
	history  history.Driver
	log      *slog.Logger
}

// NewSearcher builds a Searcher over the given stores.
func NewSearcher(embedder embeddings.Embedder, vectors vector.Driver, hist history.Driver, log *slog.Logger) *Searcher {
	return &Searcher{
		embedder: embedder,
		vectors:  vectors,
		history:  hist,
		log:      log,
	}
}

// Search embeds the query, finds the nearest conversations in the
// vector store, and loads their summaries from history. Hits whose
// conversation has since been deleted are dropped.
func (s *Searcher) Search(ctx context.Context, query string, topK int) (*Output, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.log.Debug("search request",
		slog.String("query", query),
		slog.Int("top_k", topK),
	)

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.vectors.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		id := hit.ConversationID
		if id == "" {
			id = hit.ID
		}

		rec, err := s.history.GetConversation(ctx, id)
		if err != nil {
			s.log.Warn("dropping hit without a stored conversation",
				slog.String("conversation_id", id),
				slog.Any("error", err),
			)
			continue
		}

		results = append(results, buildResult(hit, rec))
	}

	return &Output{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}

// Index embeds a stored conversation and upserts it into the vector
// store, one document per conversation keyed by its id. Saving the same
// conversation again replaces the document.
func (s *Searcher) Index(ctx context.Context, rec *history.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record with an ID is required")
	}

	embedding, err := s.embedder.Embed(ctx, Digest(rec))
	if err != nil {
		return fmt.Errorf("embedding conversation %s: %w", rec.ID, err)
	}

	err = s.vectors.Add(ctx, []vector.Document{{
		ID:             rec.ID,
		ConversationID: rec.ID,
		Embedding:      embedding,
	}})
	if err != nil {
		return fmt.Errorf("indexing conversation %s: %w", rec.ID, err)
	}

	s.log.Debug("indexed conversation", slog.String("conversation_id", rec.ID))
	return nil
}

// Remove drops a conversation from the vector store. Unknown ids are
// not an error, so Remove is safe to call after any history delete.
func (s *Searcher) Remove(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return nil
	}
	if err := s.vectors.Delete(ctx, []string{conversationID}); err != nil {
		return fmt.Errorf("removing conversation %s from index: %w", conversationID, err)
	}
	return nil
}

// Digest flattens a conversation into the text that gets embedded: the
// title, then each message prefixed with its role, capped at
// digestLimit bytes on a rune boundary.
func Digest(rec *history.Record) string {
	var b strings.Builder
	if rec.Title != "" {
		b.WriteString(rec.Title)
		b.WriteString("\n\n")
	}
	for _, m := range rec.Messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
		if b.Len() > digestLimit {
			break
		}
	}

	digest := b.String()
	if len(digest) > digestLimit {
		cut := digestLimit
		for cut > 0 && !utf8.RuneStart(digest[cut]) {
			cut--
		}
		digest = digest[:cut]
	}
	return digest
}

func buildResult(hit vector.QueryResult, rec *history.Record) Result {
	preview := ""
	for _, m := range rec.Messages {
		if m.Role == string(chat.RoleUser) && m.Content != "" {
			preview = utils.Truncate(strings.Join(strings.Fields(m.Content), " "), previewWidth)
			break
		}
	}

	return Result{
		ConversationID: rec.ID,
		Score:          hit.Score,
		Title:          rec.Title,
		Preview:        preview,
		Assistant:      rec.AssistantName,
		Model:          rec.Model,
		Project:        rec.Project,
		CreatedAt:      rec.CreatedAt,
		Messages:       len(rec.Messages),
	}
}
