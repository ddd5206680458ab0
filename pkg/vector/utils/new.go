// Package vectorutils builds vector drivers from configuration values.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inklingco/inkling/pkg/logger"
	"github.com/inklingco/inkling/pkg/vector"
	"github.com/inklingco/inkling/pkg/vector/qdrant"
	"github.com/inklingco/inkling/pkg/vector/sqlitevec"
)

// DefaultDimensions matches the width of nomic-embed-text, the embedding
// model used when nothing else is configured.
const DefaultDimensions = 768

// DefaultCollection is the qdrant collection used when none is named.
const DefaultCollection = "inkling"

// NewDriverOpts selects and configures a vector driver.
type NewDriverOpts struct {
	// Driver picks the implementation: "sqlite" (the default) or "qdrant".
	Driver string
	// DSN is the sqlite database path or the qdrant "host:port" address.
	DSN string
	// Collection names the qdrant collection. Empty means
	// DefaultCollection. Ignored by sqlite.
	Collection string
	// Dimensions is the embedding width. Zero means DefaultDimensions.
	Dimensions uint
	// Logger receives driver debug output. Nil means no logging.
	Logger *slog.Logger
}

// NewDriver builds the vector driver named in the options.
func NewDriver(ctx context.Context, o NewDriverOpts) (vector.Driver, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	dims := o.Dimensions
	if dims == 0 {
		dims = DefaultDimensions
	}

	switch o.Driver {
	case "sqlite", "sqlitevec", "":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.DSN,
			Dimensions: dims,
		}, log)
	case "qdrant":
		collection := o.Collection
		if collection == "" {
			collection = DefaultCollection
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Addr:       o.DSN,
			Collection: collection,
			Dimensions: dims,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported vector driver: %s", o.Driver)
	}
}
