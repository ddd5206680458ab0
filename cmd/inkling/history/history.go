// Package historycmder provides the history command for browsing and
// pruning recorded conversations.
package historycmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/cmd/inkling/dbpath"
	"github.com/inklingco/inkling/pkg/cliui"
	"github.com/inklingco/inkling/pkg/config"
	"github.com/inklingco/inkling/pkg/history"
	historyutils "github.com/inklingco/inkling/pkg/history/utils"
	"github.com/inklingco/inkling/pkg/logger"
)

const historyLongDesc string = `Browse conversations recorded by chat sessions.

Every completed exchange is saved to the local history store. With no
subcommand the recorded conversations are listed, newest first.

Examples:
  inkling history
  inkling history show 4f8b2c1a-77d2-4e09-9c61-2f25c1b0a9d3
  inkling history rm 4f8b2c1a-77d2-4e09-9c61-2f25c1b0a9d3`

const historyShortDesc string = "List recorded conversations"

// historyFlags are the registry keys every history subcommand binds.
var historyFlags = []string{
	config.FlagHistoryDriver,
	config.FlagHistoryDSN,
}

// HistoryCommander carries the resolved settings shared by the history
// subcommands.
type HistoryCommander struct {
	configDir string
	debug     bool

	historyDriver string
	historyDSN    string

	log *slog.Logger
}

func NewHistoryCmd() *cobra.Command {
	cmder := &HistoryCommander{}

	cmd := &cobra.Command{
		Use:     "history",
		Short:   historyShortDesc,
		Long:    historyLongDesc,
		Args:    cobra.NoArgs,
		PreRunE: cmder.preRun(historyFlags),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runList(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, &cmder.historyDSN)

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newRmCmd())

	return cmd
}

// preRun resolves configuration for a history subcommand: viper is
// initialized, the named registry flags are bound, and the commander's
// fields are filled from the resulting precedence chain.
func (c *HistoryCommander) preRun(flags []string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		c.configDir, _ = cmd.Flags().GetString("config-dir")
		c.debug, _ = cmd.Flags().GetBool("debug")

		v, err := config.InitViper(c.configDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		config.BindRegisteredFlags(v, cmd, config.Flags, flags)

		c.historyDriver = v.GetString("history.driver")
		c.historyDSN = v.GetString("history.dsn")

		c.log = logger.Nop()
		if c.debug {
			c.log = logger.New(logger.WithDebug(true), logger.WithPretty(true))
		}

		return nil
	}
}

// openHistory opens the configured history store.
func (c *HistoryCommander) openHistory(ctx context.Context) (history.Driver, error) {
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

func (c *HistoryCommander) runList(ctx context.Context) error {
	driver, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	summaries, err := driver.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No conversations recorded yet. Start one with 'inkling chat'."))
		return nil
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("%d conversations", len(summaries))))
	for _, s := range summaries {
		printSummary(s)
	}
	fmt.Println()

	return nil
}

// printSummary writes one listing row: the title, then the details line
// used to address the conversation in show and rm.
func printSummary(s *history.Summary) {
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}

	fmt.Printf("  %s\n", cliui.TitleStyle.Render(title))

	details := fmt.Sprintf("%s · %d messages · %s",
		s.CreatedAt.Format("2006-01-02 15:04"),
		s.Messages,
		valueOr(s.AssistantName, s.Model),
	)
	if s.Project != "" {
		details += " · " + s.Project
	}

	fmt.Printf("  %s  %s\n\n",
		cliui.NameStyle.Render(s.ID),
		cliui.DimStyle.Render(details),
	)
}

// valueOr prefers the first non-empty string.
func valueOr(a, b string) string {
	if a != "" {
		return a
	}
	if b != "" {
		return b
	}
	return "unknown assistant"
}
