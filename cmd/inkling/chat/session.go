package chatcmder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/inklingco/inkling/cmd/inkling/dbpath"
	"github.com/inklingco/inkling/pkg/chat"
	"github.com/inklingco/inkling/pkg/embeddings"
	embeddingutils "github.com/inklingco/inkling/pkg/embeddings/utils"
	"github.com/inklingco/inkling/pkg/eventstream"
	eventstreamutils "github.com/inklingco/inkling/pkg/eventstream/utils"
	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/history/inmemory"
	historyutils "github.com/inklingco/inkling/pkg/history/utils"
	"github.com/inklingco/inkling/pkg/note"
	"github.com/inklingco/inkling/pkg/rag"
	"github.com/inklingco/inkling/pkg/search"
	"github.com/inklingco/inkling/pkg/vector"
	vectorutils "github.com/inklingco/inkling/pkg/vector/utils"
)

// session bundles one conversation with the collaborators that persist
// it: the note writer, the history store, and, when configured, the
// search index and the event publisher.
//
// The conversation itself degrades gracefully when the service is not
// reachable or not configured; the session is still usable for reading
// history and writing whatever was said so far.
type session struct {
	conv   *chat.Conversation
	client *rag.Client

	notes    *note.Writer
	history  history.Driver
	searcher *search.Searcher
	events   eventstream.Publisher

	// vectors and embedder are held for closing; the searcher uses them.
	vectors  vector.Driver
	embedder embeddings.Embedder

	log *slog.Logger

	// warnings collects non-fatal setup problems for the banner.
	warnings []string
}

// buildSession assembles the conversation and its collaborators from
// the commander's resolved settings. Collaborator failures are
// downgraded to warnings so a broken history database never blocks a
// chat; only the conversation itself is always constructed.
func (c *ChatCommander) buildSession(ctx context.Context, apiKey string) *session {
	s := &session{
		notes: &note.Writer{Dir: c.notesDir},
		log:   c.log,
	}

	client, reason := c.buildClient(apiKey)
	s.client = client
	s.conv = chat.New(client, c.assistant,
		chat.WithLogger(c.log),
		chat.WithStreaming(c.stream),
		chat.WithModel(c.model),
	)
	if client != nil && c.assistant == "" {
		reason = "no assistant configured; pick one from 'inkling agents' and set it with 'inkling config set api.assistant <id>'"
	}
	if reason != "" {
		s.conv.Degrade(reason)
	}

	s.history = c.buildHistory(ctx, s)
	s.searcher = c.buildSearcher(ctx, s)
	s.events = c.buildEvents(s)

	return s
}

// buildClient constructs the service client, or explains why it cannot.
func (c *ChatCommander) buildClient(apiKey string) (*rag.Client, string) {
	if c.host == "" {
		return nil, "no service host configured; set one with 'inkling config set api.host <url>'"
	}
	if apiKey == "" {
		return nil, "no API key found; store one with 'inkling auth'"
	}

	client, err := rag.New(rag.Config{
		Host:    c.host,
		APIKey:  apiKey,
		Model:   c.model,
		Timeout: time.Duration(c.timeout) * time.Second,
		Logger:  c.log,
	})
	if err != nil {
		return nil, err.Error()
	}

	return client, ""
}

// buildHistory opens the configured history driver, falling back to the
// in-memory store when the configured one cannot be opened.
func (c *ChatCommander) buildHistory(ctx context.Context, s *session) history.Driver {
	dsn, err := dbpath.HistoryDSN(c.historyDriver, c.historyDSN, c.configDir)
	if err == nil {
		var driver history.Driver
		driver, err = historyutils.NewDriver(ctx, &historyutils.NewDriverOpts{
			Driver: c.historyDriver,
			DSN:    dsn,
			Logger: c.log,
		})
		if err == nil {
			return driver
		}
	}

	s.warn("history store unavailable, conversations will not be recorded: " + err.Error())
	return inmemory.NewDriver()
}

// buildSearcher wires the embedder and vector store when search is
// enabled. A failure leaves the session without a searcher.
func (c *ChatCommander) buildSearcher(ctx context.Context, s *session) *search.Searcher {
	if !c.searchEnabled {
		return nil
	}

	embedder, err := embeddingutils.NewEmbedder(embeddingutils.NewEmbedderOpts{
		URL:   c.ollamaURL,
		Model: c.searchModel,
	})
	if err != nil {
		s.warn("search disabled: " + err.Error())
		return nil
	}

	dsn, err := dbpath.VectorDSN(c.vectorDriver, c.qdrantAddr, c.configDir)
	if err != nil {
		s.warn("search disabled: " + err.Error())
		return nil
	}

	vectors, err := vectorutils.NewDriver(ctx, vectorutils.NewDriverOpts{
		Driver: c.vectorDriver,
		DSN:    dsn,
		Logger: c.log,
	})
	if err != nil {
		s.warn("search disabled: " + err.Error())
		return nil
	}

	s.embedder = embedder
	s.vectors = vectors
	return search.NewSearcher(embedder, vectors, s.history, c.log)
}

// buildEvents wires the activity event publisher. An empty topic means
// the nop publisher; a broken Kafka setup downgrades to nop too.
func (c *ChatCommander) buildEvents(s *session) eventstream.Publisher {
	var brokers []string
	for b := range strings.SplitSeq(c.brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	pub, err := eventstreamutils.NewPublisher(eventstreamutils.NewPublisherOpts{
		Brokers: brokers,
		Topic:   c.topic,
		Logger:  c.log,
	})
	if err != nil {
		s.warn("event publishing disabled: " + err.Error())
		return nil
	}

	return pub
}

func (s *session) warn(msg string) {
	s.warnings = append(s.warnings, msg)
	s.log.Warn(msg)
}

// record saves the conversation to history and, when configured,
// refreshes the search index and publishes a saved event. Conversations
// with nothing but placeholders and notices are skipped. Index and
// event failures are logged, not returned: the history row is the
// record of truth.
func (s *session) record(ctx context.Context) error {
	rec := history.FromConversation(s.conv)
	if len(rec.Messages) == 0 {
		return nil
	}

	if err := s.history.SaveConversation(ctx, rec); err != nil {
		return err
	}

	if s.searcher != nil {
		if err := s.searcher.Index(ctx, rec); err != nil {
			s.log.Warn("indexing conversation", slog.Any("error", err))
		}
	}

	if s.events != nil {
		event := eventstream.NewConversationSaved(rec, s.conv.Streaming())
		if err := s.events.PublishConversation(ctx, event); err != nil {
			s.log.Warn("publishing saved event", slog.Any("error", err))
		}
	}

	return nil
}

// writeNote renders the conversation into the notes directory and
// returns the path. Empty conversations are refused.
func (s *session) writeNote() (string, error) {
	if !s.hasContent() {
		return "", errors.New("nothing to save yet")
	}
	return s.notes.Write(s.conv)
}

// hasContent reports whether the transcript holds anything worth
// persisting.
func (s *session) hasContent() bool {
	for _, m := range s.conv.Messages() {
		if !m.Temporary && m.Role != chat.RoleSystem {
			return true
		}
	}
	return false
}

// Close releases every store the session opened.
func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.log.Warn("closing history", slog.Any("error", err))
		}
	}
	if s.vectors != nil {
		if err := s.vectors.Close(); err != nil {
			s.log.Warn("closing vector store", slog.Any("error", err))
		}
	}
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil {
			s.log.Warn("closing embedder", slog.Any("error", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.log.Warn("closing event publisher", slog.Any("error", err))
		}
	}
}
