// Package servecmder provides the serve command that runs the local
// inkling API server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/api"
	"github.com/inklingco/inkling/cmd/inkling/dbpath"
	"github.com/inklingco/inkling/pkg/config"
	"github.com/inklingco/inkling/pkg/credentials"
	embeddingutils "github.com/inklingco/inkling/pkg/embeddings/utils"
	"github.com/inklingco/inkling/pkg/history"
	historyutils "github.com/inklingco/inkling/pkg/history/utils"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/rag"
	"github.com/inklingco/inkling/pkg/search"
	vectorutils "github.com/inklingco/inkling/pkg/vector/utils"
)

const serveLongDesc string = `Run the local inkling API server.

The server exposes recorded conversations over a small read API, the
same data as MCP tools for agent integrations, and, with --sandbox, a
canned assistant endpoint so chat sessions can run without the remote
service:

  GET /ping                     Liveness probe
  GET /v1/conversations         List recorded conversations
  GET /v1/conversations/:id     Fetch one conversation
  GET /v1/search                Semantic search (when search is enabled)
  ALL /mcp                      MCP over streamable HTTP

Logs are structured JSON on stdout, one object per line.

Examples:
  inkling serve
  inkling serve --listen 127.0.0.1:9000
  inkling serve --sandbox
  INKLING_SERVE_LISTEN=:8099 inkling serve`

const serveShortDesc string = "Run the local inkling API server"

// serveFlags are the registry keys the serve command binds.
var serveFlags = []string{
	config.FlagListen,
	config.FlagSandbox,
	config.FlagHost,
	config.FlagAssistant,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagHistoryDriver,
	config.FlagHistoryDSN,
	config.FlagSearch,
	config.FlagVector,
	config.FlagQdrant,
	config.FlagOllama,
	config.FlagSearchModel,
}

type ServeCommander struct {
	configDir string
	debug     bool

	listen  string
	sandbox bool

	host      string
	assistant string
	model     string
	timeout   uint

	historyDriver string
	historyDSN    string

	searchEnabled bool
	vectorDriver  string
	qdrantAddr    string
	ollamaURL     string
	searchModel   string

	log *slog.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("serve.listen")
			cmder.sandbox = v.GetBool("serve.sandbox")
			cmder.host = v.GetString("api.host")
			cmder.assistant = v.GetString("api.assistant")
			cmder.model = v.GetString("api.model")
			cmder.timeout = v.GetUint("api.timeout")
			cmder.historyDriver = v.GetString("history.driver")
			cmder.historyDSN = v.GetString("history.dsn")
			cmder.searchEnabled = v.GetBool("search.enabled")
			cmder.vectorDriver = v.GetString("search.vector")
			cmder.qdrantAddr = v.GetString("search.qdrant")
			cmder.ollamaURL = v.GetString("search.ollama")
			cmder.searchModel = v.GetString("search.model")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddBoolFlag(cmd, config.Flags, config.FlagSandbox, &cmder.sandbox)
	config.AddStringFlag(cmd, config.Flags, config.FlagHost, &cmder.host)
	config.AddStringFlag(cmd, config.Flags, config.FlagAssistant, &cmder.assistant)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, &cmder.historyDSN)
	config.AddBoolFlag(cmd, config.Flags, config.FlagSearch, &cmder.searchEnabled)
	config.AddStringFlag(cmd, config.Flags, config.FlagVector, &cmder.vectorDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagQdrant, &cmder.qdrantAddr)
	config.AddStringFlag(cmd, config.Flags, config.FlagOllama, &cmder.ollamaURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagSearchModel, &cmder.searchModel)

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.log = logger.New(logger.WithJSON(true), logger.WithDebug(c.debug))

	hist, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	defer hist.Close()

	searcher, searchCleanup := c.buildSearcher(ctx, hist)
	if searchCleanup != nil {
		defer searchCleanup()
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:  c.listen,
		History:     hist,
		Searcher:    searcher,
		Assistant:   c.buildAssistant(),
		AssistantID: c.assistant,
		Sandbox:     c.sandbox,
	}, c.log)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("api server: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		return server.Shutdown()
	case <-ctx.Done():
		return server.Shutdown()
	}
}

func (c *ServeCommander) openHistory(ctx context.Context) (history.Driver, error) {
	dsn, err := dbpath.HistoryDSN(c.historyDriver, c.historyDSN, c.configDir)
	if err != nil {
		return nil, err
	}

	driver, err := historyutils.NewDriver(ctx, &historyutils.NewDriverOpts{
		Driver: c.historyDriver,
		DSN:    dsn,
		Logger: c.log,
	})
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	return driver, nil
}

// buildSearcher wires the search surface over the server's history
// driver. Setup problems disable search rather than failing the
// server; conversations still serve without it.
func (c *ServeCommander) buildSearcher(ctx context.Context, hist history.Driver) (*search.Searcher, func()) {
	if !c.searchEnabled {
		return nil, nil
	}

	embedder, err := embeddingutils.NewEmbedder(embeddingutils.NewEmbedderOpts{
		URL:   c.ollamaURL,
		Model: c.searchModel,
	})
	if err != nil {
		c.log.Warn("search disabled", slog.Any("error", err))
		return nil, nil
	}

	dsn, err := dbpath.VectorDSN(c.vectorDriver, c.qdrantAddr, c.configDir)
	if err != nil {
		c.log.Warn("search disabled", slog.Any("error", err))
		embedder.Close()
		return nil, nil
	}

	vectors, err := vectorutils.NewDriver(ctx, vectorutils.NewDriverOpts{
		Driver: c.vectorDriver,
		DSN:    dsn,
		Logger: c.log,
	})
	if err != nil {
		c.log.Warn("search disabled", slog.Any("error", err))
		embedder.Close()
		return nil, nil
	}

	cleanup := func() {
		embedder.Close()
		vectors.Close()
	}

	return search.NewSearcher(embedder, vectors, hist, c.log), cleanup
}

// buildAssistant builds the service client behind the MCP ask tool.
// Serving works without one; the tool just stays unregistered.
func (c *ServeCommander) buildAssistant() *rag.Client {
	if c.host == "" || c.assistant == "" {
		return nil
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		c.log.Warn("assistant tool disabled", slog.Any("error", err))
		return nil
	}

	apiKey, err := mgr.Resolve()
	if err != nil || apiKey == "" {
		c.log.Warn("assistant tool disabled: no API key; store one with 'inkling auth'")
		return nil
	}

	client, err := rag.New(rag.Config{
		Host:    c.host,
		APIKey:  apiKey,
		Model:   c.model,
		Timeout: time.Duration(c.timeout) * time.Second,
		Logger:  c.log,
	})
	if err != nil {
		c.log.Warn("assistant tool disabled", slog.Any("error", err))
		return nil
	}

	return client
}
