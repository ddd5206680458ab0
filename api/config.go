// Package api serves the local read API over stored conversations, the
// MCP surface, and the optional sandbox assistant from one fiber app.
package api

import (
	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/rag"
	"github.com/inklingco/inkling/pkg/search"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g. "127.0.0.1:8600").
	ListenAddr string

	// History backs the conversation read endpoints. Required.
	History history.Driver

	// Searcher enables GET /v1/search and the search_conversations MCP
	// tool when set.
	Searcher *search.Searcher

	// Assistant enables the ask_assistant MCP tool when set, together
	// with AssistantID.
	Assistant *rag.Client

	// AssistantID is the assistant the MCP ask tool talks to.
	AssistantID string

	// Sandbox mounts a canned assistant under /api/v1 so the client can
	// run against this server without the remote service.
	Sandbox bool
}
