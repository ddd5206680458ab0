package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inklingco/inkling/pkg/search"
)

var (
	searchToolName    = "search_conversations"
	searchDescription = "Semantic search over saved inkling conversations. " +
		"Returns the closest conversations with titles, previews, and full transcripts."
)

// SearchInput is the argument schema for the search_conversations tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return, defaults to 5"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, search.Output, error) {
	out, err := s.config.Searcher.Search(ctx, in.Query, in.TopK)
	if err != nil {
		s.config.Logger.Error("mcp search failed", "error", err)

		return errorResult(fmt.Sprintf("search failed: %v", err)), search.Output{}, nil
	}

	body, err := json.Marshal(out)
	if err != nil {
		return errorResult(fmt.Sprintf("encoding results: %v", err)), search.Output{}, nil
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(body)},
		},
	}

	return result, *out, nil
}

// errorResult wraps a message in a tool error so the client sees the
// failure instead of the connection dying.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
