// Package sqlite stores chunked objects in SQLite using the GridFS layout:
// one files table and one chunks table per namespace.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sagarc03/gridfetch"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database provides SQLite object store operations.
type Database struct {
	db *sql.DB
}

// Connect opens the SQLite database at dsn and verifies it answers.
func Connect(ctx context.Context, dsn string) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, gridfetch.NewConnectError(gridfetch.ReasonBadArguments, fmt.Errorf("open sqlite: %w", err))
	}

	// every connection to :memory: is a separate database
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, gridfetch.NewConnectError(gridfetch.ReasonConnectFailure, fmt.Errorf("ping sqlite: %w", err))
	}

	return &Database{db: db}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the files and chunks tables for ns.
func (d *Database) Migrate(ctx context.Context, ns gridfetch.Namespace) error {
	if err := Migrate(ctx, d.db, ns); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the tables for ns match the expected structure.
func (d *Database) Validate(ctx context.Context, ns gridfetch.Namespace) error {
	return ValidateSchema(ctx, d.db, ns)
}

// Close closes the database connection.
func (d *Database) Close(_ context.Context) error {
	return d.db.Close()
}
