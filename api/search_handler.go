package api

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - q (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearch(c *fiber.Ctx) error {
	if s.config.Searcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{
			Error: "search is not configured",
		})
	}

	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "q parameter is required",
		})
	}

	topK := 0
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	output, err := s.config.Searcher.Search(c.Context(), query, topK)
	if err != nil {
		s.log.Error("search failed", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(output)
}
