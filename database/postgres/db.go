package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/internal"
)

var objectsColumns = map[string]internal.Column{
	"key":          {Type: "text"},
	"content_type": {Type: "text"},
	"item_type":    {Type: "text"},
	"etag":         {Type: "text"},
	"size_bytes":   {Type: "bigint"},
	"data":         {Type: "bytea"},
	"created_at":   {Type: "timestamp with time zone"},
	"updated_at":   {Type: "timestamp with time zone"},
}

// ValidateSchema checks that the objects table exists in the public schema
// with the columns the backend reads and writes.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables itemgate.Tables) error {
	table := tables.Objects
	if !itemgate.IsValidTableName(table) {
		return fmt.Errorf("validate schema: invalid table name: %s", table)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
	`, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: query columns: %w", table, err)
	}
	defer rows.Close()

	actual := make(map[string]internal.Column)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate schema %s: scan column: %w", table, err)
		}
		actual[name] = internal.Column{Type: dataType, Nullable: nullable == "YES"}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	// information_schema lists no columns for a table that does not exist.
	if len(actual) == 0 {
		return fmt.Errorf("validate schema: table %s does not exist", table)
	}

	return internal.CompareColumns(table, objectsColumns, actual)
}
