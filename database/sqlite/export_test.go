package sqlite

import (
	"context"
	"fmt"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

// DeleteChunk removes chunk n of every object in ns.
func DeleteChunk(ctx context.Context, d *Database, ns gridfetch.Namespace, n int) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE n = ?`, quoteIdentifier(tables.Chunks)), n)
	return err
}
