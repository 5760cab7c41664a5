package store

import (
	"context"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
	"github.com/xtxerr/salesgrid/internal/logging"
)

// EnsureTable idempotently provisions the table with the given column
// families: one existence check, then at most one create. An existing
// table is left exactly as it is, even if it carries more families than
// requested. Transport faults surface as ErrSchema.
func EnsureTable(ctx context.Context, c Client, table string, families []string) error {
	log := logging.Component("schema")

	exists, err := c.TableExists(ctx, table)
	if err != nil {
		return sgerrors.NewSchema(table, "check", err)
	}
	if exists {
		log.Debug("table exists", "table", table)
		return nil
	}

	if err := c.CreateTable(ctx, table, families); err != nil {
		return sgerrors.NewSchema(table, "create", err)
	}

	log.Info("table created", "table", table, "families", families)
	return nil
}
