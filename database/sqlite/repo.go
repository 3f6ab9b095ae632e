package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

func placeholder(int) string { return "?" }

// timeLayout is fixed width so upload dates sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type fileRow struct {
	seq  int64
	info gridfetch.ObjectInfo
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findFile(ctx context.Context, q querier, tables internal.Tables, key gridfetch.LookupKey) (fileRow, error) {
	cond, args, err := internal.KeyCondition(key, placeholder)
	if err != nil {
		return fileRow{}, err
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT seq, id, id_type, filename, length, chunk_size, content_type, upload_date, md5
		FROM %s
		WHERE %s
		ORDER BY upload_date, seq
		LIMIT 1`, quoteIdentifier(tables.Files), cond)

	var row fileRow
	var id, idType, uploadDate string
	err = q.QueryRowContext(ctx, query, args...).Scan(
		&row.seq, &id, &idType, &row.info.Filename, &row.info.Length, &row.info.ChunkSize,
		&row.info.ContentType, &uploadDate, &row.info.MD5,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fileRow{}, gridfetch.ErrNotFound
		}
		return fileRow{}, fmt.Errorf("find file: %w", err)
	}

	row.info.ID, err = internal.DecodeID(idType, id)
	if err != nil {
		return fileRow{}, fmt.Errorf("find file: %w", err)
	}

	row.info.UploadDate, err = time.Parse(timeLayout, uploadDate)
	if err != nil {
		return fileRow{}, fmt.Errorf("find file: parse upload_date: %w", err)
	}

	return row, nil
}

// FindOne looks up the first object matching key, oldest upload first.
func (d *Database) FindOne(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) (gridfetch.Object, error) {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}

	row, err := findFile(ctx, d.db, tables, key)
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE files_seq = ? AND n = ?`, quoteIdentifier(tables.Chunks)) //nolint:gosec // table name is validated

	fetch := func(ctx context.Context, n int) ([]byte, error) {
		var data []byte
		err := d.db.QueryRowContext(ctx, query, row.seq, n).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
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

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := findFile(ctx, tx, tables, obj.Key); err == nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w: object %s already exists", gridfetch.ErrInvalidInput, obj.Key.String())
	} else if !errors.Is(err, gridfetch.ErrNotFound) {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	uploadDate := time.Now().UTC()
	insertFile := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, id_type, filename, length, chunk_size, content_type, upload_date, md5)
		VALUES (?, ?, ?, 0, ?, ?, ?, '')`, quoteIdentifier(tables.Files))

	result, err := tx.ExecContext(ctx, insertFile,
		obj.Key.String(), obj.Key.Type.String(), obj.Filename, obj.ChunkSize, obj.ContentType,
		uploadDate.Format(timeLayout),
	)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: insert file: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: last insert id: %w", err)
	}

	insertChunk := fmt.Sprintf(`INSERT INTO %s (files_seq, n, data) VALUES (?, ?, ?)`, quoteIdentifier(tables.Chunks)) //nolint:gosec // table name is validated

	length, sum, err := internal.Split(content, obj.ChunkSize, func(n int, data []byte) error {
		_, err := tx.ExecContext(ctx, insertChunk, seq, n, data)
		return err
	})
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	updateFile := fmt.Sprintf(`UPDATE %s SET length = ?, md5 = ? WHERE seq = ?`, quoteIdentifier(tables.Files)) //nolint:gosec // table name is validated
	if _, err := tx.ExecContext(ctx, updateFile, length, sum, seq); err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: update file: %w", err)
	}

	if err := tx.Commit(); err != nil {
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

// Delete removes the first object matching key and its chunks.
func (d *Database) Delete(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) error {
	tables, err := internal.TablesFor(ns)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := findFile(ctx, tx, tables, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	deleteChunks := fmt.Sprintf(`DELETE FROM %s WHERE files_seq = ?`, quoteIdentifier(tables.Chunks)) //nolint:gosec // table name is validated
	if _, err := tx.ExecContext(ctx, deleteChunks, row.seq); err != nil {
		return fmt.Errorf("delete: chunks: %w", err)
	}

	deleteFile := fmt.Sprintf(`DELETE FROM %s WHERE seq = ?`, quoteIdentifier(tables.Files)) //nolint:gosec // table name is validated
	if _, err := tx.ExecContext(ctx, deleteFile, row.seq); err != nil {
		return fmt.Errorf("delete: file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete: commit: %w", err)
	}
	return nil
}
