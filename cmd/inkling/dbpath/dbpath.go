// Package dbpath resolves database locations for commands that open the
// history or vector stores. File-backed drivers default to databases
// inside the .inkling/ directory; server-backed drivers require an
// explicit address.
package dbpath

import (
	"fmt"
	"path/filepath"

	"github.com/inklingco/inkling/pkg/dotdir"
)

const (
	historyFile = "history.db"
	vectorsFile = "vectors.db"
)

// HistoryDSN returns the DSN for the configured history driver. An
// explicit dsn always wins. The sqlite driver falls back to history.db
// in the resolved .inkling/ directory; the inmemory driver needs no
// DSN; postgres and libsql must be given one.
func HistoryDSN(driver, dsn, configDir string) (string, error) {
	if dsn != "" {
		return dsn, nil
	}

	switch driver {
	case "sqlite", "":
		target, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return "", fmt.Errorf("resolving history path: %w", err)
		}
		return filepath.Join(target, historyFile), nil
	case "inmemory":
		return "", nil
	default:
		return "", fmt.Errorf("history.dsn is required for the %s driver; set it with 'inkling config set history.dsn <dsn>'", driver)
	}
}

// VectorDSN returns the DSN for the configured vector driver: the
// qdrant address for qdrant, a vectors.db file in the resolved
// .inkling/ directory for sqlite.
func VectorDSN(driver, qdrant, configDir string) (string, error) {
	switch driver {
	case "qdrant":
		return qdrant, nil
	case "sqlite", "":
		target, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return "", fmt.Errorf("resolving vector path: %w", err)
		}
		return filepath.Join(target, vectorsFile), nil
	default:
		return "", fmt.Errorf("unsupported vector driver: %s", driver)
	}
}
