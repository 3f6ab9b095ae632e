package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

// Migrate creates the tables for ns if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, ns gridfetch.Namespace) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return err
	}

	quotedFiles := pgx.Identifier{tables.Files}.Sanitize()
	quotedChunks := pgx.Identifier{tables.Chunks}.Sanitize()
	indexID := pgx.Identifier{fmt.Sprintf("idx_%s_id", tables.Files)}.Sanitize()
	indexFilename := pgx.Identifier{fmt.Sprintf("idx_%s_filename", tables.Files)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			id_type TEXT NOT NULL,
			filename TEXT NOT NULL,
			length BIGINT NOT NULL,
			chunk_size BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			upload_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			md5 TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS %s
		ON %s (id, id_type);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (filename, upload_date);

		CREATE TABLE IF NOT EXISTS %s (
			files_seq BIGINT NOT NULL REFERENCES %s (seq) ON DELETE CASCADE,
			n INTEGER NOT NULL,
			data BYTEA NOT NULL,
			PRIMARY KEY (files_seq, n)
		);
	`,
		quotedFiles,
		indexID, quotedFiles,
		indexFilename, quotedFiles,
		quotedChunks, quotedFiles,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create tables for %s: %w", ns, err)
	}
	return nil
}

// DropTables removes the tables for ns.
func DropTables(ctx context.Context, pool *pgxpool.Pool, ns gridfetch.Namespace) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return err
	}

	for _, name := range []string{tables.Chunks, tables.Files} {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{name}.Sanitize())
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return nil
}
