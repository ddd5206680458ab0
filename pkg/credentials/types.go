package credentials

// Credentials represents the stored API credentials in credentials.toml.
// The key lives here instead of config.toml so configs can be shared or
// committed without leaking secrets.
type Credentials struct {
	Version int    `toml:"version"`
	APIKey  string `toml:"api_key,omitempty"`
}
