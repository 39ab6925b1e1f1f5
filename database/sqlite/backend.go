// Package sqlite stores item objects as blobs in a SQLite table.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/internal"
)

// Backend implements itemgate.ObjectBackend on a single table.
type Backend struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

// NewBackend creates a Backend over db. The table must already exist.
func NewBackend(db *sql.DB, tables itemgate.Tables) (*Backend, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new backend: %w", err)
	}

	return &Backend{db: db, tableName: tables.Objects}, nil
}

func (b *Backend) timestamp() time.Time {
	if b.now != nil {
		return b.now().UTC()
	}
	return time.Now().UTC()
}

func (b *Backend) Put(ctx context.Context, key string, content io.Reader, meta itemgate.ObjectMeta) (itemgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return itemgate.ObjectInfo{}, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return itemgate.ObjectInfo{}, fmt.Errorf("put: read content: %w", err)
	}

	etag := internal.ETag(data)
	now := b.timestamp()
	nowStr := now.Format(time.RFC3339Nano)

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (key, content_type, item_type, etag, size_bytes, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			content_type = excluded.content_type,
			item_type = excluded.item_type,
			etag = excluded.etag,
			size_bytes = excluded.size_bytes,
			data = excluded.data,
			updated_at = excluded.updated_at`, quoteIdentifier(b.tableName))

	_, err = b.db.ExecContext(ctx, query,
		key, meta.ContentType, meta.ItemType, etag, len(data), data, nowStr, nowStr,
	)
	if err != nil {
		return itemgate.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	return itemgate.ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ETag:        etag,
		ContentType: meta.ContentType,
		ItemType:    meta.ItemType,
		UpdatedAt:   now,
	}, nil
}

func (b *Backend) Get(ctx context.Context, key string) (itemgate.ObjectInfo, io.ReadCloser, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT key, content_type, item_type, etag, size_bytes, updated_at, data
		FROM %s
		WHERE key = ?`, quoteIdentifier(b.tableName))

	var info itemgate.ObjectInfo
	var updatedAt string
	var data []byte

	err := b.db.QueryRowContext(ctx, query, key).Scan(
		&info.Key, &info.ContentType, &info.ItemType, &info.ETag, &info.Size, &updatedAt, &data,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return itemgate.ObjectInfo{}, nil, itemgate.ErrNotFound
		}
		return itemgate.ObjectInfo{}, nil, fmt.Errorf("get: %w", err)
	}

	info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return itemgate.ObjectInfo{}, nil, fmt.Errorf("get: parse updated_at: %w", err)
	}

	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// List returns every object whose key starts with prefix, ordered by key.
func (b *Backend) List(ctx context.Context, prefix string) ([]itemgate.ObjectInfo, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT key, content_type, item_type, etag, size_bytes, updated_at
		FROM %s
		WHERE key LIKE ? || '%%' ESCAPE '\' AND substr(key, 1, length(?)) = ?
		ORDER BY key`, quoteIdentifier(b.tableName))

	// LIKE ignores ASCII case in SQLite; the substr comparison keeps owners
	// that differ only in case apart.
	rows, err := b.db.QueryContext(ctx, query, internal.EscapeLikePattern(prefix), prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []itemgate.ObjectInfo{}
	for rows.Next() {
		var info itemgate.ObjectInfo
		var updatedAt string

		if scanErr := rows.Scan(&info.Key, &info.ContentType, &info.ItemType, &info.ETag, &info.Size, &updatedAt); scanErr != nil {
			return nil, fmt.Errorf("list: scan: %w", scanErr)
		}

		var parseErr error
		info.UpdatedAt, parseErr = time.Parse(time.RFC3339Nano, updatedAt)
		if parseErr != nil {
			return nil, fmt.Errorf("list: parse updated_at: %w", parseErr)
		}

		entries = append(entries, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return entries, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE key = ?`, quoteIdentifier(b.tableName))

	result, err := b.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", itemgate.ErrNotFound)
	}

	return nil
}
