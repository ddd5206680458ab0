package historycmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/pkg/cliui"
	"github.com/inklingco/inkling/pkg/config"
	"github.com/inklingco/inkling/pkg/history"
)

const showLongDesc string = `Print a recorded conversation.

The transcript is rendered as markdown, references included. Use
'inkling history' to find conversation ids.

Examples:
  inkling history show 4f8b2c1a-77d2-4e09-9c61-2f25c1b0a9d3`

const showShortDesc string = "Print a recorded conversation"

func newShowCmd() *cobra.Command {
	cmder := &HistoryCommander{}

	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   showShortDesc,
		Long:    showLongDesc,
		Args:    cobra.ExactArgs(1),
		PreRunE: cmder.preRun(historyFlags),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runShow(cmd.Context(), args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, &cmder.historyDSN)

	return cmd
}

func (c *HistoryCommander) runShow(ctx context.Context, id string) error {
	driver, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	rec, err := driver.GetConversation(ctx, id)
	if err != nil {
		var nf history.NotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("no conversation with id %s; 'inkling history' lists the recorded ones", id)
		}
		return fmt.Errorf("loading conversation: %w", err)
	}

	doc := renderRecord(rec)
	rendered, err := cliui.RenderMarkdown(doc)
	if err != nil {
		fmt.Println(doc)
		return nil
	}

	fmt.Println(rendered)
	return nil
}

// renderRecord lays a stored conversation out as a markdown document:
// title heading, a section per message, and a references appendix.
func renderRecord(rec *history.Record) string {
	var b strings.Builder

	title := rec.Title
	if title == "" {
		title = "Conversation"
	}
	fmt.Fprintf(&b, "# %s\n", title)

	assistant := rec.AssistantName
	if assistant == "" {
		assistant = rec.AssistantID
	}
	fmt.Fprintf(&b, "\n*%s · %s · %s*\n",
		assistant,
		rec.Model,
		rec.CreatedAt.Format("2006-01-02 15:04"),
	)

	var refs []string
	seen := map[string]bool{}

	for _, m := range rec.Messages {
		if m.Role == "user" {
			b.WriteString("\n## You\n\n")
		} else {
			b.WriteString("\n## Assistant\n\n")
		}

		b.WriteString(m.Content)
		b.WriteString("\n")
		if m.Incomplete {
			b.WriteString("\n*response interrupted*\n")
		}

		for _, r := range m.References {
			if r.DocumentName == "" || seen[r.DocumentName] {
				continue
			}
			seen[r.DocumentName] = true
			refs = append(refs, r.DocumentName)
		}
	}

	if len(refs) > 0 {
		b.WriteString("\n## References\n\n")
		for _, r := range refs {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	return b.String()
}
