// Package authcmder provides the auth command for storing the assistant
// service API key.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inklingco/inkling/pkg/cliui"
	"github.com/inklingco/inkling/pkg/credentials"
)

const authLongDesc string = `Store the API key for the assistant service.

The key is stored in credentials.toml in the .inkling/ directory, kept
out of config.toml so config files can be shared without leaking
secrets. The INKLING_API_KEY environment variable overrides the stored
key when set.

Examples:
  inkling auth                   Prompt for the API key
  inkling auth --list            Show whether a key is stored
  inkling auth --remove          Remove the stored key
  echo $KEY | inkling auth       Pipe the API key from stdin`

const authShortDesc string = "Store the assistant service API key"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			switch {
			case listFlag:
				return runList(configDir)
			case removeFlag:
				return runRemove(configDir)
			default:
				return runAuth(configDir)
			}
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "Show whether a key is stored")
	cmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the stored key")

	return cmd
}

func runAuth(configDir string) error {
	apiKey, err := readAPIKey()
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(apiKey); err != nil {
		return err
	}

	fmt.Printf("\n  %s Stored API key %s\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)

	if os.Getenv(credentials.EnvAPIKey) != "" {
		fmt.Printf("  %s %s is set and takes precedence over the stored key.\n",
			cliui.WarnStyle.Render("!"),
			credentials.EnvAPIKey,
		)
	}

	fmt.Println()
	return nil
}

func runList(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	key, err := mgr.Key()
	if err != nil {
		return err
	}

	if key == "" {
		fmt.Printf("\n  %s No stored API key.\n", cliui.DimStyle.Render("●"))
		fmt.Printf("  Use 'inkling auth' to store one.\n\n")
		return nil
	}

	fmt.Printf("\n  %s API key %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(maskKey(key)),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)

	return nil
}

func runRemove(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed stored API key.\n\n", cliui.SuccessMark)

	return nil
}

// maskKey hides all but the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// readAPIKey reads the API key from stdin. If stdin is a pipe, it reads
// the first line. Otherwise, it prompts interactively with hidden input.
func readAPIKey() (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Print("Enter API key for the assistant service: ")

	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
