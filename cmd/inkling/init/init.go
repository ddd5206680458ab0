// Package initcmder provides the init command for initializing a local
// .inkling directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inklingco/inkling/pkg/config"
)

const (
	dirName = ".inkling"
)

const initLongDesc string = `Initialize a new .inkling/ directory in the current working directory.

Creates a local .inkling/ directory that takes precedence over the default
~/.inkling/ directory for configuration, credentials, the history database,
and saved search indexes. A default config.toml is written when none
exists.

This is useful for keeping separate inkling settings per project.

The --preset flag seeds config.toml instead of the defaults. "local"
points the client at a sandbox assistant served by 'inkling serve
--sandbox'. Any other value is fetched as a URL, so a team can share one
config:

Examples:
  inkling init
  inkling init --preset local
  inkling init --preset https://intranet.example.com/inkling/config.toml`

const initShortDesc string = "Initialize a local .inkling/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Config preset name or URL to seed config.toml from")

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	already := err == nil && info.IsDir()

	if !already {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .inkling directory: %w", err)
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	configPath := filepath.Join(dir, "config.toml")
	_, statErr := os.Stat(configPath)
	hasConfig := statErr == nil

	switch {
	case preset != "":
		// A preset always writes, including over an existing config.
		cfg, err := presetConfig(preset)
		if err != nil {
			return err
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	case !hasConfig:
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
	}

	if already {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	fmt.Printf("Initialized .inkling directory: %s\n", dir)
	return nil
}

// presetConfig builds the config for a named preset, or fetches it when
// the preset looks like a URL.
func presetConfig(preset string) (*config.Config, error) {
	switch {
	case preset == "local":
		cfg := config.NewDefaultConfig()
		cfg.API.Host = "http://localhost:8099"
		cfg.API.Assistant = "sandbox"
		return cfg, nil
	case strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://"):
		return fetchConfig(preset)
	default:
		return nil, fmt.Errorf("unknown preset %q (known presets: local; anything else must be a URL)", preset)
	}
}

func fetchConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
