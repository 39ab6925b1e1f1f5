package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/itemgate"
)

// Migrate creates the objects table and its indexes if missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables itemgate.Tables) error {
	if err := createObjectsTable(ctx, pool, tables.Objects); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// DropTables removes every table Migrate creates.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables itemgate.Tables) error {
	quotedTable := pgx.Identifier{tables.Objects}.Sanitize()
	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}

func createObjectsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexPrefix := pgx.Identifier{fmt.Sprintf("idx_%s_key_prefix", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT NOT NULL PRIMARY KEY,
			content_type TEXT NOT NULL,
			item_type TEXT NOT NULL,
			etag TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (key text_pattern_ops);
	`,
		quotedTable,
		indexPrefix, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create objects table: %w", err)
	}
	return nil
}
