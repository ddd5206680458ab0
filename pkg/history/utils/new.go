package historyutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inklingco/inkling/pkg/history"
	"github.com/inklingco/inkling/pkg/history/inmemory"
	"github.com/inklingco/inkling/pkg/history/libsql"
	"github.com/inklingco/inkling/pkg/history/postgres"
	"github.com/inklingco/inkling/pkg/history/sqlite"
	"github.com/inklingco/inkling/pkg/logger"
)

// NewDriverOpts selects and configures a history driver.
type NewDriverOpts struct {
	// Driver is one of "sqlite", "postgres", "libsql", "inmemory".
	Driver string

	// DSN is the database path or connection string.
	DSN string

	Logger *slog.Logger
}

// NewDriver builds the configured history driver.
func NewDriver(ctx context.Context, o *NewDriverOpts) (history.Driver, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	switch o.Driver {
	case "sqlite", "":
		return sqlite.NewDriver(o.DSN, log)
	case "postgres":
		return postgres.NewDriver(ctx, o.DSN, log)
	case "libsql":
		return libsql.NewDriver(o.DSN, log)
	case "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", o.Driver)
	}
}
