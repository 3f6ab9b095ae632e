package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

func validateTableSchema(ctx context.Context, db *sql.DB, tableName string, expectedSchema map[string]columnInfo) error {
	exists, err := tableExists(ctx, db, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}

	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var dfltValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: notNull == 0,
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	var problems []string
	for colName, expected := range expectedSchema {
		actual, ok := actualColumns[colName]
		if !ok {
			problems = append(problems, colName+": missing")
			continue
		}
		if actual.dataType != expected.dataType {
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", colName, expected.dataType, actual.dataType))
		}
		if actual.isNullable != expected.isNullable {
			problems = append(problems, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", colName, expected.isNullable, actual.isNullable))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("table %s schema validation failed: %s", tableName, strings.Join(problems, "; "))
	}

	return nil
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}

var filesTableSchema = map[string]columnInfo{
	"seq":          {"seq", "integer", true},
	"id":           {"id", "text", false},
	"id_type":      {"id_type", "text", false},
	"filename":     {"filename", "text", false},
	"length":       {"length", "integer", false},
	"chunk_size":   {"chunk_size", "integer", false},
	"content_type": {"content_type", "text", false},
	"upload_date":  {"upload_date", "text", false},
	"md5":          {"md5", "text", false},
}

var chunksTableSchema = map[string]columnInfo{
	"files_seq": {"files_seq", "integer", false},
	"n":         {"n", "integer", false},
	"data":      {"data", "blob", false},
}

// ValidateSchema checks the files and chunks tables of ns.
func ValidateSchema(ctx context.Context, db *sql.DB, ns gridfetch.Namespace) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return err
	}

	validations := map[string]map[string]columnInfo{
		tables.Files:  filesTableSchema,
		tables.Chunks: chunksTableSchema,
	}
	for _, name := range []string{tables.Files, tables.Chunks} {
		if err := validateTableSchema(ctx, db, name, validations[name]); err != nil {
			return fmt.Errorf("validate schema %s: %w", name, err)
		}
	}

	return nil
}
