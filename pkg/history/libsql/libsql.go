// Package libsql provides a libSQL-backed history driver, for keeping
// history on a synced Turso replica instead of a plain local file.
package libsql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/inklingco/inkling/pkg/history/sqlstore"
)

// Driver implements history.Driver using libSQL.
type Driver struct {
	*sqlstore.Store
}

// NewDriver connects with dsn, either a "libsql://" database URL with
// an authToken parameter or a local "file:" path, and prepares the
// schema. libSQL speaks the sqlite dialect.
func NewDriver(dsn string, log *slog.Logger) (*Driver, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := sqlstore.New(db, sqlstore.SQLite, log)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Store: store}, nil
}
