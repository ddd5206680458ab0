// Package searchcmder provides the search command for semantic search
// over recorded conversations.
package searchcmder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/cmd/inkling/dbpath"
	"github.com/inklingco/inkling/pkg/config"
	embeddingutils "github.com/inklingco/inkling/pkg/embeddings/utils"
	historyutils "github.com/inklingco/inkling/pkg/history/utils"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/search"
	vectorutils "github.com/inklingco/inkling/pkg/vector/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const searchLongDesc string = `Search recorded conversations by meaning.

The query is embedded and matched against the indexed conversations,
returning the closest ones with a preview and the id to open them with
'inkling history show'.

Search requires the semantic index: enable it with
'inkling config set search.enabled true'. Conversations recorded while
search is enabled are indexed automatically as chats are saved.

Examples:
  inkling search "how do we deploy"
  inkling search "incident review action items" --top 10`

const searchShortDesc string = "Search recorded conversations"

// searchFlags are the registry keys the search command binds.
var searchFlags = []string{
	config.FlagSearch,
	config.FlagVector,
	config.FlagQdrant,
	config.FlagOllama,
	config.FlagSearchModel,
	config.FlagHistoryDriver,
	config.FlagHistoryDSN,
}

type SearchCommander struct {
	configDir string
	debug     bool

	topK int

	searchEnabled bool
	vectorDriver  string
	qdrantAddr    string
	ollamaURL     string
	searchModel   string

	historyDriver string
	historyDSN    string

	log *slog.Logger
}

func NewSearchCmd() *cobra.Command {
	cmder := &SearchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, searchFlags)

			cmder.searchEnabled = v.GetBool("search.enabled")
			cmder.vectorDriver = v.GetString("search.vector")
			cmder.qdrantAddr = v.GetString("search.qdrant")
			cmder.ollamaURL = v.GetString("search.ollama")
			cmder.searchModel = v.GetString("search.model")
			cmder.historyDriver = v.GetString("history.driver")
			cmder.historyDSN = v.GetString("history.dsn")

			cmder.log = logger.Nop()
			if cmder.debug {
				cmder.log = logger.New(logger.WithDebug(true), logger.WithPretty(true))
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), args[0])
		},
	}

	config.AddBoolFlag(cmd, config.Flags, config.FlagSearch, &cmder.searchEnabled)
	config.AddStringFlag(cmd, config.Flags, config.FlagVector, &cmder.vectorDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagQdrant, &cmder.qdrantAddr)
	config.AddStringFlag(cmd, config.Flags, config.FlagOllama, &cmder.ollamaURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagSearchModel, &cmder.searchModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, &cmder.historyDSN)

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", search.DefaultTopK, "Number of results to return")

	return cmd
}

func (c *SearchCommander) run(ctx context.Context, query string) error {
	if !c.searchEnabled {
		return fmt.Errorf("semantic search is disabled; enable it with 'inkling config set search.enabled true'")
	}

	searcher, cleanup, err := c.buildSearcher(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	output, err := searcher.Search(ctx, query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search results for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(i+1, result)
	}

	return nil
}

// buildSearcher opens the embedder and both stores. The returned
// cleanup closes whatever was opened.
func (c *SearchCommander) buildSearcher(ctx context.Context) (*search.Searcher, func(), error) {
	embedder, err := embeddingutils.NewEmbedder(embeddingutils.NewEmbedderOpts{
		URL:   c.ollamaURL,
		Model: c.searchModel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building embedder: %w", err)
	}

	vectorDSN, err := dbpath.VectorDSN(c.vectorDriver, c.qdrantAddr, c.configDir)
	if err != nil {
		embedder.Close()
		return nil, nil, err
	}

	vectors, err := vectorutils.NewDriver(ctx, vectorutils.NewDriverOpts{
		Driver: c.vectorDriver,
		DSN:    vectorDSN,
		Logger: c.log,
	})
	if err != nil {
		embedder.Close()
		return nil, nil, fmt.Errorf("opening vector store: %w", err)
	}

	historyDSN, err := dbpath.HistoryDSN(c.historyDriver, c.historyDSN, c.configDir)
	if err != nil {
		embedder.Close()
		vectors.Close()
		return nil, nil, err
	}

	hist, err := historyutils.NewDriver(ctx, &historyutils.NewDriverOpts{
		Driver: c.historyDriver,
		DSN:    historyDSN,
		Logger: c.log,
	})
	if err != nil {
		embedder.Close()
		vectors.Close()
		return nil, nil, fmt.Errorf("opening history store: %w", err)
	}

	cleanup := func() {
		embedder.Close()
		vectors.Close()
		hist.Close()
	}

	return search.NewSearcher(embedder, vectors, hist, c.log), cleanup, nil
}

func printResult(rank int, result search.Result) {
	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		idStyle.Render(result.ConversationID),
	)

	if result.Title != "" {
		fmt.Printf("  %s\n", titleStyle.Render(result.Title))
	}

	if result.Preview != "" {
		preview := strings.ReplaceAll(result.Preview, "\n", " ")
		fmt.Printf("  %s\n", previewStyle.Render(preview))
	}

	details := fmt.Sprintf("%s · %d messages · %s",
		result.CreatedAt.Format("2006-01-02 15:04"),
		result.Messages,
		assistantLabel(result),
	)
	if result.Project != "" {
		details += " · " + result.Project
	}
	fmt.Printf("  %s\n\n", dimStyle.Render(details))
}

// assistantLabel prefers the assistant's display name over the raw
// model.
func assistantLabel(result search.Result) string {
	if result.Assistant != "" {
		return result.Assistant
	}
	if result.Model != "" {
		return result.Model
	}
	return "unknown assistant"
}
