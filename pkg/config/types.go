package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent inkling configuration stored as
// config.toml in the .inkling/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	API     APIConfig     `toml:"api"`
	Chat    ChatConfig    `toml:"chat"`
	Notes   NotesConfig   `toml:"notes"`
	History HistoryConfig `toml:"history"`
	Search  SearchConfig  `toml:"search"`
	Events  EventsConfig  `toml:"events"`
	Serve   ServeConfig   `toml:"serve"`
}

// APIConfig holds the assistant service connection settings.
type APIConfig struct {
	Host      string `toml:"host,omitempty"`
	Assistant string `toml:"assistant,omitempty"`
	Model     string `toml:"model,omitempty"`
	// Timeout bounds a whole ask, in seconds.
	Timeout uint `toml:"timeout,omitempty"`
}

// ChatConfig holds chat session settings.
// Stream is a pointer so an absent key can fall back to the default
// instead of reading as false.
type ChatConfig struct {
	Stream *bool `toml:"stream,omitempty"`
}

// NotesConfig holds transcript output settings.
type NotesConfig struct {
	Dir string `toml:"dir,omitempty"`
}

// HistoryConfig holds conversation history store settings.
type HistoryConfig struct {
	Driver string `toml:"driver,omitempty"`
	DSN    string `toml:"dsn,omitempty"`
}

// SearchConfig holds semantic search settings.
type SearchConfig struct {
	Enabled *bool  `toml:"enabled,omitempty"`
	Vector  string `toml:"vector,omitempty"`
	Qdrant  string `toml:"qdrant,omitempty"`
	Ollama  string `toml:"ollama,omitempty"`
	Model   string `toml:"model,omitempty"`
}

// EventsConfig holds activity event publishing settings. An empty topic
// disables publishing.
type EventsConfig struct {
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ServeConfig holds local API server settings.
type ServeConfig struct {
	Listen  string `toml:"listen,omitempty"`
	Sandbox *bool  `toml:"sandbox,omitempty"`
}

// StreamEnabled reports the effective chat.stream value.
func (c *Config) StreamEnabled() bool {
	if c.Chat.Stream == nil {
		return defaultChatStream
	}
	return *c.Chat.Stream
}

// SearchEnabled reports the effective search.enabled value.
func (c *Config) SearchEnabled() bool {
	if c.Search.Enabled == nil {
		return defaultSearchEnabled
	}
	return *c.Search.Enabled
}

// SandboxEnabled reports the effective serve.sandbox value.
func (c *Config) SandboxEnabled() bool {
	if c.Serve.Sandbox == nil {
		return defaultServeSandbox
	}
	return *c.Serve.Sandbox
}

// configKeyInfo maps a user-facing dotted key name to a getter and
// setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(get func(c *Config) bool, set func(c *Config, b bool)) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(get(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean value %q: %w", v, err)
			}
			set(c, b)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.host": {
		get: func(c *Config) string { return c.API.Host },
		set: func(c *Config, v string) error { c.API.Host = v; return nil },
	},
	"api.assistant": {
		get: func(c *Config) string { return c.API.Assistant },
		set: func(c *Config, v string) error { c.API.Assistant = v; return nil },
	},
	"api.model": {
		get: func(c *Config) string { return c.API.Model },
		set: func(c *Config, v string) error { c.API.Model = v; return nil },
	},
	"api.timeout": {
		get: func(c *Config) string {
			if c.API.Timeout == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.API.Timeout), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for api.timeout: %w", err)
			}
			c.API.Timeout = uint(n)
			return nil
		},
	},
	"chat.stream": boolKey(
		func(c *Config) bool { return c.StreamEnabled() },
		func(c *Config, b bool) { c.Chat.Stream = &b },
	),
	"notes.dir": {
		get: func(c *Config) string { return c.Notes.Dir },
		set: func(c *Config, v string) error { c.Notes.Dir = v; return nil },
	},
	"history.driver": {
		get: func(c *Config) string { return c.History.Driver },
		set: func(c *Config, v string) error { c.History.Driver = v; return nil },
	},
	"history.dsn": {
		get: func(c *Config) string { return c.History.DSN },
		set: func(c *Config, v string) error { c.History.DSN = v; return nil },
	},
	"search.enabled": boolKey(
		func(c *Config) bool { return c.SearchEnabled() },
		func(c *Config, b bool) { c.Search.Enabled = &b },
	),
	"search.vector": {
		get: func(c *Config) string { return c.Search.Vector },
		set: func(c *Config, v string) error { c.Search.Vector = v; return nil },
	},
	"search.qdrant": {
		get: func(c *Config) string { return c.Search.Qdrant },
		set: func(c *Config, v string) error { c.Search.Qdrant = v; return nil },
	},
	"search.ollama": {
		get: func(c *Config) string { return c.Search.Ollama },
		set: func(c *Config, v string) error { c.Search.Ollama = v; return nil },
	},
	"search.model": {
		get: func(c *Config) string { return c.Search.Model },
		set: func(c *Config, v string) error { c.Search.Model = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"serve.listen": {
		get: func(c *Config) string { return c.Serve.Listen },
		set: func(c *Config, v string) error { c.Serve.Listen = v; return nil },
	},
	"serve.sandbox": boolKey(
		func(c *Config) bool { return c.SandboxEnabled() },
		func(c *Config, b bool) { c.Serve.Sandbox = &b },
	),
}
