package historycmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/cmd/inkling/dbpath"
	"github.com/inklingco/inkling/pkg/cliui"
	"github.com/inklingco/inkling/pkg/config"
	embeddingutils "github.com/inklingco/inkling/pkg/embeddings/utils"
	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/search"
	vectorutils "github.com/inklingco/inkling/pkg/vector/utils"
)

const rmLongDesc string = `Delete a recorded conversation.

The conversation and its messages are removed from the history store.
When semantic search is enabled it is dropped from the search index
too. Use 'inkling history' to find conversation ids.

Examples:
  inkling history rm 4f8b2c1a-77d2-4e09-9c61-2f25c1b0a9d3`

const rmShortDesc string = "Delete a recorded conversation"

// rmFlags adds the search settings: deleting a conversation also
// removes it from the search index.
var rmFlags = []string{
	config.FlagHistoryDriver,
	config.FlagHistoryDSN,
	config.FlagSearch,
	config.FlagVector,
	config.FlagQdrant,
	config.FlagOllama,
	config.FlagSearchModel,
}

type rmCommander struct {
	HistoryCommander

	searchEnabled bool
	vectorDriver  string
	qdrantAddr    string
	ollamaURL     string
	searchModel   string
}

func newRmCmd() *cobra.Command {
	cmder := &rmCommander{}

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: rmShortDesc,
		Long:  rmLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, rmFlags)

			cmder.historyDriver = v.GetString("history.driver")
			cmder.historyDSN = v.GetString("history.dsn")
			cmder.searchEnabled = v.GetBool("search.enabled")
			cmder.vectorDriver = v.GetString("search.vector")
			cmder.qdrantAddr = v.GetString("search.qdrant")
			cmder.ollamaURL = v.GetString("search.ollama")
			cmder.searchModel = v.GetString("search.model")

			cmder.log = logger.Nop()
			if cmder.debug {
				cmder.log = logger.New(logger.WithDebug(true), logger.WithPretty(true))
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runRm(cmd.Context(), args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, &cmder.historyDSN)
	config.AddBoolFlag(cmd, config.Flags, config.FlagSearch, &cmder.searchEnabled)
	config.AddStringFlag(cmd, config.Flags, config.FlagVector, &cmder.vectorDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagQdrant, &cmder.qdrantAddr)
	config.AddStringFlag(cmd, config.Flags, config.FlagOllama, &cmder.ollamaURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagSearchModel, &cmder.searchModel)

	return cmd
}

func (c *rmCommander) runRm(ctx context.Context, id string) error {
	driver, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	if err := driver.DeleteConversation(ctx, id); err != nil {
		var nf history.NotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("no conversation with id %s; 'inkling history' lists the recorded ones", id)
		}
		return fmt.Errorf("deleting conversation: %w", err)
	}

	c.unindex(ctx, id)

	fmt.Printf("  %s Deleted %s\n", cliui.SuccessMark, cliui.NameStyle.Render(id))
	return nil
}

// unindex drops the conversation from the search index. Failures are
// logged, not returned: the history delete already happened and a stale
// index entry only produces a dead hit that search filters out.
func (c *rmCommander) unindex(ctx context.Context, id string) {
	if !c.searchEnabled {
		return
	}

	embedder, err := embeddingutils.NewEmbedder(embeddingutils.NewEmbedderOpts{
		URL:   c.ollamaURL,
		Model: c.searchModel,
	})
	if err != nil {
		c.log.Warn("search index not updated", slog.Any("error", err))
		return
	}
	defer embedder.Close()

	dsn, err := dbpath.VectorDSN(c.vectorDriver, c.qdrantAddr, c.configDir)
	if err != nil {
		c.log.Warn("search index not updated", slog.Any("error", err))
		return
	}

	vectors, err := vectorutils.NewDriver(ctx, vectorutils.NewDriverOpts{
		Driver: c.vectorDriver,
		DSN:    dsn,
		Logger: c.log,
	})
	if err != nil {
		c.log.Warn("search index not updated", slog.Any("error", err))
		return
	}
	defer vectors.Close()

	searcher := search.NewSearcher(embedder, vectors, nil, c.log)
	if err := searcher.Remove(ctx, id); err != nil {
		c.log.Warn("search index not updated", slog.Any("error", err))
	}
}
