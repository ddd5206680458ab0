package config

const (
	defaultAPIModel   = "model"
	defaultAPITimeout = 300

	defaultChatStream = true

	defaultNotesDir = "notes"

	defaultHistoryDriver = "sqlite"

	defaultSearchEnabled = false
	defaultSearchVector  = "sqlite"
	defaultSearchQdrant  = "localhost:6334"
	defaultSearchOllama  = "http://localhost:11434"
	defaultSearchModel   = "nomic-embed-text"

	defaultServeListen  = ":8099"
	defaultServeSandbox = false
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. The service
// host and assistant have no defaults; they must be configured before
// the first chat.
func NewDefaultConfig() *Config {
	stream := defaultChatStream
	searchEnabled := defaultSearchEnabled
	sandbox := defaultServeSandbox

	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Model:   defaultAPIModel,
			Timeout: defaultAPITimeout,
		},
		Chat: ChatConfig{
			Stream: &stream,
		},
		Notes: NotesConfig{
			Dir: defaultNotesDir,
		},
		History: HistoryConfig{
			Driver: defaultHistoryDriver,
		},
		Search: SearchConfig{
			Enabled: &searchEnabled,
			Vector:  defaultSearchVector,
			Qdrant:  defaultSearchQdrant,
			Ollama:  defaultSearchOllama,
			Model:   defaultSearchModel,
		},
		Serve: ServeConfig{
			Listen:  defaultServeListen,
			Sandbox: &sandbox,
		},
	}
}
