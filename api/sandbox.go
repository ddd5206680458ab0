package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/inklingco/inkling/pkg/rag"
)

// sandboxAgents are the assistants the sandbox pretends to host.
var sandboxAgents = []rag.Agent{
	{ID: "sandbox", Name: "Sandbox Assistant"},
}

// sandboxStreamDelay paces streamed words so a terminal shows them
// arriving one by one. Tests zero it.
var sandboxStreamDelay = 15 * time.Millisecond

type sandboxRequest struct {
	Model    string        `json:"model"`
	Messages []rag.Message `json:"messages"`
	Stream   bool          `json:"stream"`
}

// mountSandbox registers a canned assistant that speaks the same wire
// protocol as the remote service, so the client can run against this
// server offline.
func (s *Server) mountSandbox() {
	s.app.Get("/api/v1/assistants", s.handleSandboxAgents)
	s.app.Post("/api/v1/assistants/:id/chat/completions", s.handleSandboxCompletion)
}

// handleSandboxAgents lists the canned assistants. The remote service
// answers with a bare array, so the sandbox does too.
func (s *Server) handleSandboxAgents(c *fiber.Ctx) error {
	return c.JSON(sandboxAgents)
}

// handleSandboxCompletion answers a chat completion request, streamed
// or not, with a canned reply built from the last user message.
func (s *Server) handleSandboxCompletion(c *fiber.Ctx) error {
	var req sandboxRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "invalid request body",
		})
	}

	answer := sandboxAnswer(req.Messages)

	if !req.Stream {
		return c.JSON(fiber.Map{
			"id": uuid.NewString(),
			"choices": []fiber.Map{
				{"message": fiber.Map{"content": answer}},
			},
			"session_id": "sandbox-session",
			"reference": fiber.Map{
				"chunks": []fiber.Map{
					{
						"document_id":   "sandbox-doc",
						"document_name": "sandbox.md",
						"content":       "The sandbox assistant has no documents to retrieve from.",
						"dataset_id":    "sandbox",
					},
				},
			},
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// SplitAfter keeps the separators so the reassembled answer is
		// byte-identical to the non-streamed one.
		for _, word := range strings.SplitAfter(answer, " ") {
			frame, err := json.Marshal(fiber.Map{
				"choices": []fiber.Map{
					{"delta": fiber.Map{"content": word}},
				},
			})
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", frame)
			if err := w.Flush(); err != nil {
				return
			}
			time.Sleep(sandboxStreamDelay)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

// sandboxAnswer builds the canned reply from the last user message.
func sandboxAnswer(msgs []rag.Message) string {
	question := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" && strings.TrimSpace(msgs[i].Content) != "" {
			question = strings.TrimSpace(msgs[i].Content)
			break
		}
	}

	if question == "" {
		return "This is the sandbox assistant. Send a question and it will be echoed back."
	}

	return fmt.Sprintf(
		"You asked: %s\n\nThis is the sandbox assistant. It echoes questions instead of answering them, so the client can be exercised without the remote service.",
		question,
	)
}
