// Package mcp exposes stored conversations and the remote assistant
// over the Model Context Protocol.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inklingco/inkling/pkg/rag"
	"github.com/inklingco/inkling/pkg/search"
	"github.com/inklingco/inkling/pkg/utils"
)

type Config struct {
	// Searcher enables the search_conversations tool when set.
	Searcher *search.Searcher

	// Assistant and AssistantID together enable the ask_assistant tool.
	Assistant   *rag.Client
	AssistantID string

	// Logger is the configured logger. Required.
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates an MCP server carrying whichever tools the config
// enables. With neither a searcher nor an assistant it still serves,
// just with no tools.
func NewServer(c Config) (*Server, error) {
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "inkling",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Searcher != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)
	}

	if c.Assistant != nil && c.AssistantID != "" {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        askToolName,
			Description: askDescription,
		}, s.handleAsk)
	}

	s.mcpServer = mcpServer

	// Stateless streamable HTTP handler for mounting into the fiber app.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
