package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, tableName string, expectedSchema map[string]columnInfo) error {
	exists, err := tableExists(ctx, pool, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}

	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: nullable == "YES",
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	var missingColumns []string
	var mismatchedColumns []string

	for colName, expected := range expectedSchema {
		actual, ok := actualColumns[colName]
		if !ok {
			missingColumns = append(missingColumns, colName)
			continue
		}

		if actual.dataType != expected.dataType {
			mismatchedColumns = append(mismatchedColumns,
				fmt.Sprintf("%s: expected %s, got %s", colName, expected.dataType, actual.dataType))
		}

		if actual.isNullable != expected.isNullable {
			mismatchedColumns = append(mismatchedColumns,
				fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", colName, expected.isNullable, actual.isNullable))
		}
	}

	if len(missingColumns) > 0 || len(mismatchedColumns) > 0 {
		var errMsg strings.Builder
		fmt.Fprintf(&errMsg, "table %s schema validation failed:", tableName)
		if len(missingColumns) > 0 {
			fmt.Fprintf(&errMsg, " missing columns: %s;", strings.Join(missingColumns, ", "))
		}
		if len(mismatchedColumns) > 0 {
			fmt.Fprintf(&errMsg, " mismatched columns: %s", strings.Join(mismatchedColumns, ", "))
		}
		return fmt.Errorf("%s", strings.TrimSuffix(errMsg.String(), ";"))
	}

	return nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`
	if err := pool.QueryRow(ctx, query, tableName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}

var filesTableSchema = map[string]columnInfo{
	"seq":          {"seq", "bigint", false},
	"id":           {"id", "text", false},
	"id_type":      {"id_type", "text", false},
	"filename":     {"filename", "text", false},
	"length":       {"length", "bigint", false},
	"chunk_size":   {"chunk_size", "bigint", false},
	"content_type": {"content_type", "text", false},
	"upload_date":  {"upload_date", "timestamp with time zone", false},
	"md5":          {"md5", "text", false},
}

var chunksTableSchema = map[string]columnInfo{
	"files_seq": {"files_seq", "bigint", false},
	"n":         {"n", "integer", false},
	"data":      {"data", "bytea", false},
}

// ValidateSchema checks the files and chunks tables of ns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, ns gridfetch.Namespace) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return err
	}

	if err := validateTableSchema(ctx, pool, tables.Files, filesTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Files, err)
	}
	if err := validateTableSchema(ctx, pool, tables.Chunks, chunksTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Chunks, err)
	}
	return nil
}
