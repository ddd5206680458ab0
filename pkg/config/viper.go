package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/inklingco/inkling/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper. It sets
// defaults from NewDefaultConfig(), reads the config.toml file (found
// via dotdir resolution), and binds environment variables with the
// INKLING_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (INKLING_API_HOST, INKLING_SERVE_LISTEN, ...)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("INKLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source
// of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("api.host", d.API.Host)
	v.SetDefault("api.assistant", d.API.Assistant)
	v.SetDefault("api.model", d.API.Model)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("chat.stream", d.StreamEnabled())

	v.SetDefault("notes.dir", d.Notes.Dir)

	v.SetDefault("history.driver", d.History.Driver)
	v.SetDefault("history.dsn", d.History.DSN)

	v.SetDefault("search.enabled", d.SearchEnabled())
	v.SetDefault("search.vector", d.Search.Vector)
	v.SetDefault("search.qdrant", d.Search.Qdrant)
	v.SetDefault("search.ollama", d.Search.Ollama)
	v.SetDefault("search.model", d.Search.Model)

	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	v.SetDefault("serve.listen", d.Serve.Listen)
	v.SetDefault("serve.sandbox", d.SandboxEnabled())
}
