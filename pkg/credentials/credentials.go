// Package credentials manages the assistant service API key stored in
// credentials.toml inside the .inkling/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/inklingco/inkling/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// EnvAPIKey is the environment variable that overrides the stored
	// API key.
	EnvAPIKey = "INKLING_API_KEY"
)

// Manager reads and writes credentials.toml in the .inkling/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a credentials Manager. If override is non-empty it
// is used as the .inkling/ directory; otherwise the standard dotdir
// resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{ddm: dotdir.NewManager()}

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory. Returns empty
// Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores the API key.
func (m *Manager) SetKey(key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Version = currentVersion
	creds.APIKey = key

	return m.Save(creds)
}

// Key returns the stored API key, or an empty string when none is
// stored. The environment override is not consulted; use Resolve for
// the full precedence chain.
func (m *Manager) Key() (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.APIKey, nil
}

// Resolve returns the API key to use: INKLING_API_KEY from the
// environment when set, otherwise the stored key.
func (m *Manager) Resolve() (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}

	return m.Key()
}

// RemoveKey deletes the stored API key.
func (m *Manager) RemoveKey() error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.APIKey = ""

	return m.Save(creds)
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}
