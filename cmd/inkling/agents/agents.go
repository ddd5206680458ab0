// Package agentscmder provides the agents command for listing the
// assistants available on the service.
package agentscmder

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/pkg/cliui"
	"github.com/inklingco/inkling/pkg/config"
	"github.com/inklingco/inkling/pkg/credentials"
	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/rag"
)

const agentsLongDesc string = `List the assistants available on the service.

Each assistant pairs a knowledge base with a system prompt on the
service side. Pass an ID to 'inkling chat --assistant' to converse with
it, or make it the default with 'inkling config set api.assistant'.

Examples:
  inkling agents                              List assistants
  inkling agents --host https://rag.internal  List from a specific host`

const agentsShortDesc string = "List assistants available on the service"

type AgentsCommander struct {
	host    string
	timeout uint
	debug   bool
}

func NewAgentsCmd() *cobra.Command {
	cmder := AgentsCommander{}

	cmd := &cobra.Command{
		Use:   "agents",
		Short: agentsShortDesc,
		Long:  agentsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagHost})

			cmder.host = v.GetString("api.host")
			cmder.timeout = v.GetUint("api.timeout")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd, configDir)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagHost, &cmder.host)

	return cmd
}

func (c *AgentsCommander) run(cmd *cobra.Command, configDir string) error {
	log := logger.Nop()
	if c.debug {
		log = logger.New(logger.WithDebug(true), logger.WithPretty(true))
	}

	if c.host == "" {
		return errors.New("no service host configured; set one with 'inkling config set api.host <url>'")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	apiKey, err := mgr.Resolve()
	if err != nil {
		return err
	}
	if apiKey == "" {
		return errors.New("no API key found; store one with 'inkling auth'")
	}

	client, err := rag.New(rag.Config{
		Host:    c.host,
		APIKey:  apiKey,
		Timeout: time.Duration(c.timeout) * time.Second,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	agents, err := client.Agents(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing assistants: %w", err)
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Assistants at "+client.Host()))

	if len(agents) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No assistants available."))
		return nil
	}

	maxID := 0
	for _, agent := range agents {
		if len(agent.ID) > maxID {
			maxID = len(agent.ID)
		}
	}

	for _, agent := range agents {
		fmt.Printf("  %s  %s\n",
			cliui.NameStyle.Render(fmt.Sprintf("%-*s", maxID, agent.ID)),
			cliui.ValueStyle.Render(agent.Name),
		)
	}

	fmt.Println()

	return nil
}
