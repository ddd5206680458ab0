// Package inklingcmder
package inklingcmder

import (
	"github.com/spf13/cobra"

	agentscmder "github.com/inklingco/inkling/cmd/inkling/agents"
	authcmder "github.com/inklingco/inkling/cmd/inkling/auth"
	chatcmder "github.com/inklingco/inkling/cmd/inkling/chat"
	configcmder "github.com/inklingco/inkling/cmd/inkling/config"
	historycmder "github.com/inklingco/inkling/cmd/inkling/history"
	initcmder "github.com/inklingco/inkling/cmd/inkling/init"
	notescmder "github.com/inklingco/inkling/cmd/inkling/notes"
	searchcmder "github.com/inklingco/inkling/cmd/inkling/search"
	servecmder "github.com/inklingco/inkling/cmd/inkling/serve"
	versioncmder "github.com/inklingco/inkling/cmd/version"
)

const inklingLongDesc string = `Inkling is a terminal client for your team's assistant service.

Chat with an assistant over your documents, save the answers as markdown
notes, and search everything you have asked before:
  inkling chat         Start an interactive chat session
  inkling notes        List saved conversation notes
  inkling history      Browse saved conversations
  inkling search       Semantic search over saved conversations
  inkling serve        Run the local read API and MCP server`

const inklingShortDesc string = "Inkling - terminal client for your assistant service"

func NewInklingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkling",
		Short: inklingShortDesc,
		Long:  inklingLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .inkling/ directory")

	// Add subcommands
	cmd.AddCommand(agentscmder.NewAgentsCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(notescmder.NewNotesCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
