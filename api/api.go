package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/inklingco/inkling/api/mcp"
)

// Server is the local HTTP server behind `inkling serve`.
type Server struct {
	config Config
	log    *slog.Logger
	app    *fiber.App
}

// NewServer assembles the fiber app with every surface the config
// enables.
func NewServer(config Config, log *slog.Logger) (*Server, error) {
	if config.History == nil {
		return nil, errors.New("history driver is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		log:    log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/conversations", s.handleListConversations)
	app.Get("/v1/conversations/:id", s.handleGetConversation)
	app.Get("/v1/search", s.handleSearch)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Searcher:    config.Searcher,
		Assistant:   config.Assistant,
		AssistantID: config.AssistantID,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	if config.Sandbox {
		s.mountSandbox()
	}

	return s, nil
}

// Run starts the server on the configured address and blocks until
// Shutdown.
func (s *Server) Run() error {
	s.log.Info("starting api server",
		slog.String("listen", s.config.ListenAddr),
		slog.Bool("sandbox", s.config.Sandbox),
		slog.Bool("search", s.config.Searcher != nil),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
