package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag. Commands reference
// flags by registry key rather than hard-coding names, shorthands,
// defaults, and descriptions inline. This prevents flag drift when the
// same logical flag appears on multiple commands (e.g. --assistant on
// both "inkling chat" and "inkling serve").
type Flag struct {
	// Name is the long flag name (e.g. "assistant").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no
	// shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g.
	// "api.assistant").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys. Use these constants when calling AddStringFlag,
// AddBoolFlag, AddUintFlag, and BindRegisteredFlags to avoid drift from
// one command to another.
const (
	FlagHost          = "host"
	FlagAssistant     = "assistant"
	FlagModel         = "model"
	FlagTimeout       = "timeout"
	FlagStream        = "stream"
	FlagNotesDir      = "notes-dir"
	FlagHistoryDriver = "history-driver"
	FlagHistoryDSN    = "history-dsn"
	FlagSearch        = "search"
	FlagVector        = "vector"
	FlagQdrant        = "qdrant"
	FlagOllama        = "ollama"
	FlagSearchModel   = "search-model"
	FlagBrokers       = "brokers"
	FlagTopic         = "topic"
	FlagListen        = "listen"
	FlagSandbox       = "sandbox"
)

// Flags is the canonical flag registry shared by all commands.
var Flags = FlagSet{
	FlagHost: {
		Name:        "host",
		ViperKey:    "api.host",
		Description: "Assistant service base URL",
	},
	FlagAssistant: {
		Name:        "assistant",
		Shorthand:   "a",
		ViperKey:    "api.assistant",
		Description: "Assistant ID to converse with",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "api.model",
		Description: "Completion model name",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "api.timeout",
		Description: "Request timeout in seconds",
	},
	FlagStream: {
		Name:        "stream",
		ViperKey:    "chat.stream",
		Description: "Stream answers as they are generated",
	},
	FlagNotesDir: {
		Name:        "notes-dir",
		ViperKey:    "notes.dir",
		Description: "Directory where saved transcripts are written",
	},
	FlagHistoryDriver: {
		Name:        "history-driver",
		ViperKey:    "history.driver",
		Description: "History store driver (sqlite, postgres, libsql, inmemory)",
	},
	FlagHistoryDSN: {
		Name:        "history-dsn",
		ViperKey:    "history.dsn",
		Description: "History store DSN (driver specific)",
	},
	FlagSearch: {
		Name:        "search",
		ViperKey:    "search.enabled",
		Description: "Enable semantic search over saved conversations",
	},
	FlagVector: {
		Name:        "vector",
		ViperKey:    "search.vector",
		Description: "Vector store driver (sqlite, qdrant)",
	},
	FlagQdrant: {
		Name:        "qdrant",
		ViperKey:    "search.qdrant",
		Description: "Qdrant gRPC address",
	},
	FlagOllama: {
		Name:        "ollama",
		ViperKey:    "search.ollama",
		Description: "Ollama base URL for embeddings",
	},
	FlagSearchModel: {
		Name:        "search-model",
		ViperKey:    "search.model",
		Description: "Embedding model name",
	},
	FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "Kafka broker list for activity events",
	},
	FlagTopic: {
		Name:        "topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for activity events (empty disables)",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "serve.listen",
		Description: "Address for the local API server to listen on",
	},
	FlagSandbox: {
		Name:        "sandbox",
		ViperKey:    "serve.sandbox",
		Description: "Serve a local sandbox assistant for offline use",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from
// the FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using
// definitions from the given FlagSet. Call this in PreRunE after
// InitViper to connect flags to the viper precedence chain
// (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from
// NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from
// NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}

// defaultUint returns the default uint value for a viper key from
// NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
