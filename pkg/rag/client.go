// Package rag implements the client for the assistant service's chat
// completion and agent listing APIs, including the streaming decoder
// that turns server-sent data lines into ordered answer deltas.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/inklingco/inkling/pkg/logger"
)

const (
	// DefaultModel is the completion model requested when none is
	// configured.
	DefaultModel = "model"

	// DefaultTimeout bounds a whole ask, including streaming reads.
	DefaultTimeout = 5 * time.Minute
)

// Config holds the settings needed to reach the assistant service.
type Config struct {
	// Host is the service base URL (e.g. "https://rag.example.com").
	Host string

	// APIKey is sent as a bearer token on every request.
	APIKey string

	// Model is the completion model name. Defaults to DefaultModel.
	Model string

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Logger receives debug output. Defaults to a nop logger.
	Logger *slog.Logger
}

// Client talks to one assistant service. Build a new client when
// settings change instead of mutating a shared one.
type Client struct {
	host   string
	apiKey string
	model  string
	hc     *http.Client
	log    *slog.Logger
}

// New builds a client from cfg. The host and API key are required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, ErrMissingHost
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingKey
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		host:   strings.TrimRight(cfg.Host, "/"),
		apiKey: cfg.APIKey,
		model:  model,
		hc:     &http.Client{Timeout: timeout},
		log:    log,
	}, nil
}

// Host reports the configured service base URL.
func (c *Client) Host() string { return c.host }

// Model reports the configured completion model.
func (c *Client) Model() string { return c.model }

// Ask sends msgs to the assistant and streams the reply. Each content
// fragment is forwarded to onDelta in arrival order; after the last
// fragment onDelta fires once more with final=true and empty text. The
// returned result carries the assembled answer. Cancelling ctx stops
// the stream.
func (c *Client) Ask(ctx context.Context, assistantID string, msgs []Message, onDelta DeltaFunc) (*Result, error) {
	body, err := c.completions(ctx, assistantID, msgs, true)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return decodeStream(body, onDelta, c.log)
}

// AskOnce sends msgs without streaming and delivers the whole answer
// through a single final callback. Use it when the transport in front
// of the service cannot carry a streamed body.
func (c *Client) AskOnce(ctx context.Context, assistantID string, msgs []Message, onDelta DeltaFunc) (*Result, error) {
	body, err := c.completions(ctx, assistantID, msgs, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading completion: %w", err)
	}

	var completion chatCompletion
	if err := json.Unmarshal(payload, &completion); err != nil {
		return nil, &BadCompletionError{Reason: fmt.Sprintf("parsing json: %v", err)}
	}
	if len(completion.Choices) == 0 {
		return nil, &BadCompletionError{Reason: "no choices in payload"}
	}

	answer := completion.Choices[0].Message.Content

	var refs []Reference
	if completion.Reference != nil {
		refs = make([]Reference, 0, len(completion.Reference.Chunks))
		for _, chunk := range completion.Reference.Chunks {
			refs = append(refs, Reference{
				DocumentID:   chunk.DocumentID,
				DocumentName: chunk.DocumentName,
				Content:      chunk.Content,
				DatasetID:    chunk.DatasetID,
			})
		}
	}

	if onDelta != nil {
		onDelta(answer, true)
	}

	return &Result{
		Answer:     answer,
		References: refs,
		SessionID:  completion.SessionID,
	}, nil
}

// Agents lists the assistants available on the service.
func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/v1/assistants", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &RequestError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var agents []Agent
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return nil, fmt.Errorf("decoding agents: %w", err)
	}

	return agents, nil
}

// completions issues the chat completion POST and hands back the
// response body once the status line checks out.
func (c *Client) completions(ctx context.Context, assistantID string, msgs []Message, stream bool) (io.ReadCloser, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   stream,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/assistants/%s/chat/completions", c.host, assistantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug("asking assistant",
		slog.String("assistant", assistantID),
		slog.Bool("stream", stream),
		slog.Int("messages", len(msgs)),
	)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &RequestError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return resp.Body, nil
}
