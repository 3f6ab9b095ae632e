package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

const (
	uniqueViolation       = "23505"
	characterNotInCharset = "22021"
)

func placeholder(i int) string { return "$" + strconv.Itoa(i) }

type fileRow struct {
	seq  int64
	info gridfetch.ObjectInfo
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// storableText reports whether s fits a Postgres text column. Keys that do
// not can never match a stored object.
func storableText(s string) bool {
	return utf8.ValidString(s) && strings.IndexByte(s, 0) < 0
}

func findFile(ctx context.Context, q querier, tables internal.Tables, key gridfetch.LookupKey) (fileRow, error) {
	cond, args, err := internal.KeyCondition(key, placeholder)
	if err != nil {
		return fileRow{}, err
	}
	for _, arg := range args {
		if s, ok := arg.(string); ok && !storableText(s) {
			return fileRow{}, fmt.Errorf("%w: key %q is not valid text", gridfetch.ErrNotFound, s)
		}
	}

	query := fmt.Sprintf(`
		SELECT seq, id, id_type, filename, length, chunk_size, content_type, upload_date, md5
		FROM %s
		WHERE %s
		ORDER BY upload_date, seq
		LIMIT 1
	`, pgx.Identifier{tables.Files}.Sanitize(), cond)

	var row fileRow
	var id, idType string
	err = q.QueryRow(ctx, query, args...).Scan(
		&row.seq, &id, &idType, &row.info.Filename, &row.info.Length, &row.info.ChunkSize,
		&row.info.ContentType, &row.info.UploadDate, &row.info.MD5,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fileRow{}, gridfetch.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == characterNotInCharset {
			return fileRow{}, fmt.Errorf("%w: %s", gridfetch.ErrNotFound, pgErr.Message)
		}
		return fileRow{}, fmt.Errorf("find file: %w", err)
	}

	row.info.ID, err = internal.DecodeID(idType, id)
	if err != nil {
		return fileRow{}, fmt.Errorf("find file: %w", err)
	}

	return row, nil
}

// FindOne looks up the first object matching key, oldest upload first.
func (d *Database) FindOne(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) (gridfetch.Object, error) {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}

	row, err := findFile(ctx, d.pool, tables, key)
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE files_seq = $1 AND n = $2`, pgx.Identifier{tables.Chunks}.Sanitize())

	fetch := func(ctx context.Context, n int) ([]byte, error) {
		var data []byte
		err := d.pool.QueryRow(ctx, query, row.seq, n).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if data == nil {
			data = []byte{}
		}
		return data, nil
	}

	return internal.NewCursor(row.info, fetch), nil
}

// Put writes content as a new object. The key must not exist yet.
func (d *Database) Put(ctx context.Context, ns gridfetch.Namespace, obj gridfetch.PutObject, content io.Reader) (gridfetch.ObjectInfo, error) {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	obj, err = internal.Prepare(obj)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertFile := fmt.Sprintf(`
		INSERT INTO %s (id, id_type, filename, length, chunk_size, content_type, md5)
		VALUES ($1, $2, $3, 0, $4, $5, '')
		RETURNING seq, upload_date
	`, pgx.Identifier{tables.Files}.Sanitize())

	var seq int64
	var uploadDate time.Time
	err = tx.QueryRow(ctx, insertFile,
		obj.Key.String(), obj.Key.Type.String(), obj.Filename, obj.ChunkSize, obj.ContentType,
	).Scan(&seq, &uploadDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w: object %s already exists", gridfetch.ErrInvalidInput, obj.Key.String())
		}
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: insert file: %w", err)
	}

	insertChunk := fmt.Sprintf(`INSERT INTO %s (files_seq, n, data) VALUES ($1, $2, $3)`, pgx.Identifier{tables.Chunks}.Sanitize())

	length, sum, err := internal.Split(content, obj.ChunkSize, func(n int, data []byte) error {
		_, err := tx.Exec(ctx, insertChunk, seq, n, data)
		return err
	})
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	updateFile := fmt.Sprintf(`UPDATE %s SET length = $1, md5 = $2 WHERE seq = $3`, pgx.Identifier{tables.Files}.Sanitize())
	if _, err := tx.Exec(ctx, updateFile, length, sum, seq); err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: update file: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: commit: %w", err)
	}

	return gridfetch.ObjectInfo{
		ID:          obj.Key.Value,
		Filename:    obj.Filename,
		Length:      length,
		ChunkSize:   obj.ChunkSize,
		ContentType: obj.ContentType,
		UploadDate:  uploadDate,
		MD5:         sum,
	}, nil
}

// Delete removes the first object matching key. Chunks go with it through
// the foreign key cascade.
func (d *Database) Delete(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row, err := findFile(ctx, tx, tables, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE seq = $1`, pgx.Identifier{tables.Files}.Sanitize())
	result, err := tx.Exec(ctx, query, row.seq)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", gridfetch.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delete: commit: %w", err)
	}
	return nil
}
