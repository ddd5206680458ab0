// Package configcmder provides the config command for managing
// persistent inkling configuration stored in the .inkling/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent inkling configuration.

Configuration is stored as config.toml in the .inkling/ directory and
provides default values for command flags. CLI flags always take
precedence over config file values, and INKLING_-prefixed environment
variables sit between the two (flag > env > file > default).

Keys use dotted notation matching the TOML section structure:
  api.host, api.assistant, api.model, api.timeout,
  chat.stream, notes.dir,
  history.driver, history.dsn,
  search.enabled, search.vector, search.qdrant, search.ollama, search.model,
  events.brokers, events.topic,
  serve.listen, serve.sandbox

Use subcommands to get, set, or list configuration values:
  inkling config set <key> <value>    Set a configuration value
  inkling config get <key>            Get a configuration value
  inkling config list                 List all configuration values

Examples:
  inkling config set api.host https://rag.example.com
  inkling config set api.assistant handbook
  inkling config get api.model
  inkling config list`

const configShortDesc string = "Manage persistent inkling configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
