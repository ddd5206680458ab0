package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inklingco/inkling/pkg/note"
	"github.com/inklingco/inkling/pkg/rag"
)

var (
	askToolName    = "ask_assistant"
	askDescription = "Ask the configured remote assistant a one-shot question. " +
		"Returns the answer and the names of the documents it cited."
)

// AskInput is the argument schema for the ask_assistant tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to ask the assistant"`
}

// AskOutput is the structured result of the ask_assistant tool.
type AskOutput struct {
	Answer     string   `json:"answer"`
	References []string `json:"references,omitempty"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if in.Question == "" {
		return errorResult("question is empty"), AskOutput{}, nil
	}

	msgs := []rag.Message{
		{Role: "user", Content: in.Question},
	}

	res, err := s.config.Assistant.AskOnce(ctx, s.config.AssistantID, msgs, nil)
	if err != nil {
		s.config.Logger.Error("mcp ask failed", "error", err)

		return errorResult(fmt.Sprintf("ask failed: %v", err)), AskOutput{}, nil
	}

	out := AskOutput{
		Answer:     note.Clean(res.Answer),
		References: referenceNames(res.References),
	}

	body, err := json.Marshal(out)
	if err != nil {
		return errorResult(fmt.Sprintf("encoding answer: %v", err)), AskOutput{}, nil
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(body)},
		},
	}

	return result, out, nil
}

// referenceNames dedupes the cited document names, keeping first-seen
// order. Chunks from the same document collapse to one entry.
func referenceNames(refs []rag.Reference) []string {
	var names []string
	for _, ref := range refs {
		if ref.DocumentName == "" {
			continue
		}
		if slices.Contains(names, ref.DocumentName) {
			continue
		}
		names = append(names, ref.DocumentName)
	}

	return names
}
