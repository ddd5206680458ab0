// Package notescmder provides the notes command for listing saved
// conversation notes.
package notescmder

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/pkg/config"
	"github.com/inklingco/inkling/pkg/note"
)

const notesLongDesc string = `List the conversation notes saved in the notes directory.

Notes are written by 'inkling chat' when a session ends with --save or
after the /save command. Each note carries its title, assistant,
project, and date in frontmatter; this command reads those back.

Examples:
  inkling notes
  inkling notes --project inkling
  inkling notes --notes-dir ~/vault/inbox`

const notesShortDesc string = "List saved conversation notes"

// notesFlags are the registry keys the notes command binds.
var notesFlags = []string{
	config.FlagNotesDir,
}

type NotesCommander struct {
	configDir string

	notesDir string
	project  string
}

func NewNotesCmd() *cobra.Command {
	cmder := &NotesCommander{}

	cmd := &cobra.Command{
		Use:   "notes",
		Short: notesShortDesc,
		Long:  notesLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, notesFlags)

			cmder.notesDir = v.GetString("notes.dir")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagNotesDir, &cmder.notesDir)
	cmd.Flags().StringVar(&cmder.project, "project", "", "Filter by project")

	return cmd
}

func (c *NotesCommander) run(cmd *cobra.Command) error {
	notes, err := note.List(c.notesDir)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}

	if len(notes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notes saved yet. Finish a chat with --save or /save to create one.")
		return nil
	}

	if c.project != "" {
		var filtered []*note.Summary
		for _, n := range notes {
			if n.Project == c.project {
				filtered = append(filtered, n)
			}
		}
		notes = filtered
	}

	if len(notes) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No notes found for project %q\n", c.project)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tASSISTANT\tPROJECT\tDATE")
	for _, n := range notes {
		title := strings.ReplaceAll(n.Title, "\n", " ")
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", title, n.Assistant, n.Project, n.Date.Format("2006-01-02"))
	}
	return w.Flush()
}
