// Package postgres stores item objects as bytea rows in a PostgreSQL table.
package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/internal"
)

// Backend implements itemgate.ObjectBackend on a single table.
type Backend struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewBackend(pool *pgxpool.Pool, tables itemgate.Tables) (*Backend, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new backend: %w", err)
	}

	return &Backend{pool: pool, tableName: tables.Objects}, nil
}

// Ping verifies database connectivity
func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *Backend) table() string {
	return pgx.Identifier{b.tableName}.Sanitize()
}

func (b *Backend) Put(ctx context.Context, key string, content io.Reader, meta itemgate.ObjectMeta) (itemgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return itemgate.ObjectInfo{}, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return itemgate.ObjectInfo{}, fmt.Errorf("put: read content: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, content_type, item_type, etag, size_bytes, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			item_type = EXCLUDED.item_type,
			etag = EXCLUDED.etag,
			size_bytes = EXCLUDED.size_bytes,
			data = EXCLUDED.data,
			updated_at = NOW()
		RETURNING updated_at
	`, b.table())

	info := itemgate.ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ETag:        internal.ETag(data),
		ContentType: meta.ContentType,
		ItemType:    meta.ItemType,
	}

	err = b.pool.QueryRow(ctx, query,
		key, meta.ContentType, meta.ItemType, info.ETag, info.Size, data,
	).Scan(&info.UpdatedAt)
	if err != nil {
		return itemgate.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	return info, nil
}

func (b *Backend) Get(ctx context.Context, key string) (itemgate.ObjectInfo, io.ReadCloser, error) {
	query := fmt.Sprintf(`
		SELECT key, content_type, item_type, etag, size_bytes, updated_at, data
		FROM %s
		WHERE key = $1
	`, b.table())

	var info itemgate.ObjectInfo
	var data []byte

	err := b.pool.QueryRow(ctx, query, key).Scan(
		&info.Key, &info.ContentType, &info.ItemType, &info.ETag, &info.Size, &info.UpdatedAt, &data,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return itemgate.ObjectInfo{}, nil, itemgate.ErrNotFound
		}
		return itemgate.ObjectInfo{}, nil, fmt.Errorf("get: %w", err)
	}

	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// List returns every object whose key starts with prefix, ordered by key.
func (b *Backend) List(ctx context.Context, prefix string) ([]itemgate.ObjectInfo, error) {
	query := fmt.Sprintf(`
		SELECT key, content_type, item_type, etag, size_bytes, updated_at
		FROM %s
		WHERE key LIKE $1 || '%%' ESCAPE '\'
		ORDER BY key
	`, b.table())

	rows, err := b.pool.Query(ctx, query, internal.EscapeLikePattern(prefix))
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	entries := []itemgate.ObjectInfo{}
	for rows.Next() {
		var info itemgate.ObjectInfo
		if err := rows.Scan(&info.Key, &info.ContentType, &info.ItemType, &info.ETag, &info.Size, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		entries = append(entries, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return entries, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, b.table())

	tag, err := b.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", itemgate.ErrNotFound)
	}

	return nil
}
