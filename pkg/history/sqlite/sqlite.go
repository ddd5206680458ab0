// Package sqlite provides the default, file-backed history driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inklingco/inkling/pkg/history/sqlstore"
)

// Driver implements history.Driver using SQLite.
type Driver struct {
	*sqlstore.Store
}

// NewDriver opens dbPath, which may be a file path or ":memory:", and
// prepares the schema.
func NewDriver(dbPath string, log *slog.Logger) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: sqlite allows a single writer, and a second
	// pooled connection to :memory: would open a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	store := sqlstore.New(db, sqlstore.SQLite, log)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Store: store}, nil
}
