package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables internal.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Files,
			Up:        createFilesTable(tables.Files),
			Down:      dropTable(tables.Files),
		},
		{
			TableName: tables.Chunks,
			Up:        createChunksTable(tables.Chunks),
			Down:      dropTable(tables.Chunks),
		},
	}
}

// Migrate creates the tables for ns if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, ns gridfetch.Namespace) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return err
	}

	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// DropTables removes the tables for ns.
func DropTables(ctx context.Context, db *sql.DB, ns gridfetch.Namespace) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return err
	}

	migrations := getTableMigrations(tables)
	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createFilesTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexID := quoteIdentifier(fmt.Sprintf("idx_%s_id", tableName))
		indexFilename := quoteIdentifier(fmt.Sprintf("idx_%s_filename", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL,
				id_type TEXT NOT NULL,
				filename TEXT NOT NULL,
				length INTEGER NOT NULL,
				chunk_size INTEGER NOT NULL,
				content_type TEXT NOT NULL,
				upload_date TEXT NOT NULL,
				md5 TEXT NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (id, id_type)
		`, indexID, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index id: %w", err)
		}

		indexSQL = fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (filename, upload_date)
		`, indexFilename, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index filename: %w", err)
		}

		return nil
	}
}

func createChunksTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				files_seq INTEGER NOT NULL,
				n INTEGER NOT NULL,
				data BLOB NOT NULL,
				PRIMARY KEY (files_seq, n)
			)
		`, quoteIdentifier(tableName))

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName))

		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}
