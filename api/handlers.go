package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/inklingco/inkling/pkg/history"
)

// errorResponse is the JSON body of every non-2xx answer.
type errorResponse struct {
	Error string `json:"error"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListConversations returns summaries of every stored
// conversation, newest first.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	summaries, err := s.config.History.ListConversations(c.Context())
	if err != nil {
		s.log.Error("listing conversations", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: "failed to list conversations",
		})
	}

	return c.JSON(fiber.Map{
		"count":         len(summaries),
		"conversations": summaries,
	})
}

// handleGetConversation returns one stored conversation with its full
// transcript.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "id parameter required",
		})
	}

	rec, err := s.config.History.GetConversation(c.Context(), id)
	if err != nil {
		var notFound history.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{
				Error: "conversation not found",
			})
		}
		s.log.Error("loading conversation", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: "failed to load conversation",
		})
	}

	return c.JSON(rec)
}
