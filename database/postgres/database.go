// Package postgres stores chunked objects in PostgreSQL using the GridFS
// layout: one files table and one chunks table per namespace.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/gridfetch"
)

// Database provides PostgreSQL object store operations.
type Database struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to PostgreSQL and checks that the
// server accepts writes.
func Connect(ctx context.Context, dsn string) (*Database, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, gridfetch.NewConnectError(gridfetch.ReasonBadArguments, fmt.Errorf("parse postgres dsn: %w", err))
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, gridfetch.NewConnectError(gridfetch.ReasonBadArguments, fmt.Errorf("connect postgres: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ce := gridfetch.ClassifyConnectError("", fmt.Errorf("ping postgres: %w", err))
		if ce.Reason == gridfetch.ReasonUnknown {
			ce.Reason = gridfetch.ReasonConnectFailure
		}
		return nil, ce
	}

	var inRecovery bool
	if err := pool.QueryRow(ctx, `SELECT pg_is_in_recovery()`).Scan(&inRecovery); err != nil {
		pool.Close()
		return nil, gridfetch.NewConnectError(gridfetch.ReasonConnectFailure, fmt.Errorf("check postgres role: %w", err))
	}
	if inRecovery {
		pool.Close()
		return nil, gridfetch.NewConnectError(gridfetch.ReasonNotPrimary, fmt.Errorf("postgres server is a standby"))
	}

	return &Database{pool: pool}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the files and chunks tables for ns.
func (d *Database) Migrate(ctx context.Context, ns gridfetch.Namespace) error {
	if err := Migrate(ctx, d.pool, ns); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the tables for ns match the expected structure.
func (d *Database) Validate(ctx context.Context, ns gridfetch.Namespace) error {
	return ValidateSchema(ctx, d.pool, ns)
}

// Close closes the database connection pool.
func (d *Database) Close(_ context.Context) error {
	d.pool.Close()
	return nil
}
