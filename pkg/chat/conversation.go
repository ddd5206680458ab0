package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/rag"
	"github.com/inklingco/inkling/pkg/utils"
)

const (
	// thinkingText fills the assistant placeholder while an answer is
	// on the way.
	thinkingText = "Thinking..."

	// titleWidth caps the auto-derived conversation title.
	titleWidth = 60

	degradedReply = "Not connected to the assistant service: %s. Update the configuration to reconnect."
)

var (
	// ErrSendInFlight is returned when a send starts while another one
	// is still running on the same conversation.
	ErrSendInFlight = errors.New("a send is already in flight")

	// ErrNothingToRetry is returned by Retry when the conversation has
	// no user message to ask again.
	ErrNothingToRetry = errors.New("no user message to retry")
)

// Conversation holds an ordered transcript and the state needed to
// extend it. All methods are safe for concurrent use; the delta
// callback runs on the goroutine that called Send or Retry.
type Conversation struct {
	mu        sync.Mutex
	id        string
	title     string
	model     string
	assistant string
	created   time.Time
	msgs      []*Message
	state     State
	client    *rag.Client
	stream    bool
	sending   bool
	log       *slog.Logger
}

// Option adjusts a Conversation at construction time.
type Option func(*Conversation)

// WithLogger routes the conversation's log output to log.
func WithLogger(log *slog.Logger) Option {
	return func(c *Conversation) {
		c.log = log
	}
}

// WithStreaming turns streamed answers on or off. On by default.
func WithStreaming(stream bool) Option {
	return func(c *Conversation) {
		c.stream = stream
	}
}

// WithTitle sets the title instead of deriving it from the first
// user message.
func WithTitle(title string) Option {
	return func(c *Conversation) {
		c.title = title
	}
}

// WithModel overrides the model recorded for the conversation.
func WithModel(model string) Option {
	return func(c *Conversation) {
		c.model = model
	}
}

// WithAssistantName records the display name of the assistant, for
// headers and saved transcripts. The wire only ever sees the id.
func WithAssistantName(name string) Option {
	return func(c *Conversation) {
		c.assistant = name
	}
}

// New starts an empty conversation with the given assistant. A nil
// client starts it degraded: sends answer locally until Rebuild
// installs a working client.
func New(client *rag.Client, assistantID string, opts ...Option) *Conversation {
	c := &Conversation{
		id:      uuid.NewString(),
		created: time.Now(),
		client:  client,
		stream:  true,
		log:     logger.Nop(),
	}
	if client == nil {
		c.state = DegradedState("no assistant client is configured")
		c.state.AssistantID = assistantID
	} else {
		c.state = LiveState(assistantID, "")
		c.model = client.Model()
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ID reports the conversation's identifier.
func (c *Conversation) ID() string { return c.id }

// CreatedAt reports when the conversation was started.
func (c *Conversation) CreatedAt() time.Time { return c.created }

// Title reports the conversation title, which may be empty until the
// first user message arrives.
func (c *Conversation) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// Model reports the model the conversation asks for.
func (c *Conversation) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// AssistantName reports the assistant's display name, when one was
// recorded.
func (c *Conversation) AssistantName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assistant
}

// State reports the current connection state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sending reports whether a send is currently in flight.
func (c *Conversation) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Streaming reports whether answers stream in as deltas or arrive
// whole.
func (c *Conversation) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// Messages returns a snapshot of the transcript, placeholders
// included.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, *m)
	}
	return out
}

// Send appends text as a user message and asks the assistant for the
// reply. While the answer is on the way the transcript carries a
// temporary placeholder, which the incoming deltas replace in order.
// onDelta may be nil.
//
// Only one send runs at a time; a second call while the first is in
// flight returns ErrSendInFlight without touching the transcript.
func (c *Conversation) Send(ctx context.Context, text string, onDelta rag.DeltaFunc) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	c.sending = true
	if c.title == "" {
		line, _, _ := strings.Cut(text, "\n")
		c.title = utils.Truncate(line, titleWidth)
	}
	c.msgs = append(c.msgs, newMessage(RoleUser, text))
	c.mu.Unlock()

	defer c.release()
	return c.answer(ctx, onDelta)
}

// Retry asks the last user message again without appending it a second
// time. Whatever followed that message, a failure notice or a partial
// answer, is dropped so the fresh reply takes its place.
func (c *Conversation) Retry(ctx context.Context, onDelta rag.DeltaFunc) error {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}

	last := -1
	for i := len(c.msgs) - 1; i >= 0; i-- {
		if c.msgs[i].Role == RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		c.mu.Unlock()
		return ErrNothingToRetry
	}

	c.sending = true
	c.msgs = c.msgs[:last+1]
	c.mu.Unlock()

	defer c.release()
	return c.answer(ctx, onDelta)
}

// Rebuild installs a freshly configured client and returns the
// conversation to live mode. The assistant and session carry over, so
// the next send continues where the conversation left off. A nil
// client degrades instead.
func (c *Conversation) Rebuild(client *rag.Client) {
	if client == nil {
		c.Degrade("no assistant client is configured")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.client = client
	c.state = LiveState(c.state.AssistantID, c.state.SessionID)
	if c.model == "" {
		c.model = client.Model()
	}
}

// Degrade drops the client and records why sends now answer locally.
// The assistant and session are kept for a later Rebuild.
func (c *Conversation) Degrade(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client = nil
	st := DegradedState(reason)
	st.AssistantID = c.state.AssistantID
	st.SessionID = c.state.SessionID
	c.state = st
}

// release frees the send slot claimed by Send or Retry.
func (c *Conversation) release() {
	c.mu.Lock()
	c.sending = false
	c.mu.Unlock()
}

// answer appends the assistant's side of the exchange for the user
// message already in the transcript. The caller must have claimed the
// send slot.
func (c *Conversation) answer(ctx context.Context, onDelta rag.DeltaFunc) error {
	c.mu.Lock()

	if !c.state.Live() {
		text := fmt.Sprintf(degradedReply, c.state.Reason)
		c.msgs = append(c.msgs, newMessage(RoleSystem, text))
		c.mu.Unlock()

		if onDelta != nil {
			onDelta(text, false)
			onDelta("", true)
		}
		return nil
	}

	reply := newMessage(RoleAssistant, thinkingText)
	reply.Temporary = true
	c.msgs = append(c.msgs, reply)

	client := c.client
	assistantID := c.state.AssistantID
	payload := c.outbound()
	stream := c.stream
	c.mu.Unlock()

	var (
		result *rag.Result
		err    error
	)
	deliver := c.deltaInto(reply, onDelta)
	if stream {
		result, err = client.Ask(ctx, assistantID, payload, deliver)
	} else {
		result, err = client.AskOnce(ctx, assistantID, payload, deliver)
	}
	if err != nil {
		return c.absorbFailure(reply, err)
	}

	c.mu.Lock()
	reply.References = result.References
	if result.SessionID != "" {
		c.state.SessionID = result.SessionID
	}
	c.mu.Unlock()

	c.log.Debug("assistant answered",
		slog.String("conversation", c.id),
		slog.Int("length", len(result.Answer)),
		slog.Int("references", len(result.References)),
	)
	return nil
}

// outbound converts the transcript to wire messages, dropping
// placeholders and local notices. Call with mu held.
func (c *Conversation) outbound() []rag.Message {
	msgs := make([]rag.Message, 0, len(c.msgs))
	for _, m := range c.msgs {
		if m.Temporary || m.Role == RoleSystem {
			continue
		}
		msgs = append(msgs, rag.Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

// deltaInto folds incoming deltas into reply, then forwards them to
// onDelta outside the lock. The first delta replaces the placeholder
// text; later ones append. A final callback carrying text holds the
// whole answer at once.
func (c *Conversation) deltaInto(reply *Message, onDelta rag.DeltaFunc) rag.DeltaFunc {
	return func(text string, final bool) {
		c.mu.Lock()
		switch {
		case final:
			if text != "" || reply.Temporary {
				reply.Content = text
			}
			reply.Temporary = false
		case reply.Temporary:
			reply.Content = text
			reply.Temporary = false
		default:
			reply.Content += text
		}
		c.mu.Unlock()

		if onDelta != nil {
			onDelta(text, final)
		}
	}
}

// absorbFailure settles the transcript after a failed exchange. A
// stream that broke after content arrived keeps the partial answer,
// marked incomplete. Anything else removes the placeholder and leaves
// a notice in its place. The conversation stays live either way; the
// next send proceeds normally.
func (c *Conversation) absorbFailure(reply *Message, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var streamErr *rag.StreamError
	if errors.As(err, &streamErr) && !reply.Temporary {
		reply.Incomplete = true
		c.log.Warn("stream interrupted",
			slog.String("conversation", c.id),
			slog.Int("partial", len(streamErr.Partial)),
			slog.Any("error", err),
		)
		return err
	}

	c.remove(reply)
	c.msgs = append(c.msgs, newMessage(RoleSystem, fmt.Sprintf("The assistant did not answer: %v", err)))
	c.log.Error("send failed",
		slog.String("conversation", c.id),
		slog.Any("error", err),
	)
	return err
}

// remove drops target from the transcript. Call with mu held.
func (c *Conversation) remove(target *Message) {
	for i, m := range c.msgs {
		if m == target {
			c.msgs = append(c.msgs[:i], c.msgs[i+1:]...)
			return
		}
	}
}
