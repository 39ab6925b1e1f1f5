package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/internal"
)

var objectsColumns = map[string]internal.Column{
	"key":          {Type: "text"},
	"content_type": {Type: "text"},
	"item_type":    {Type: "text"},
	"etag":         {Type: "text"},
	"size_bytes":   {Type: "integer"},
	"data":         {Type: "blob"},
	"created_at":   {Type: "text"},
	"updated_at":   {Type: "text"},
}

// ValidateSchema checks that the objects table exists with the columns the
// backend reads and writes.
func ValidateSchema(ctx context.Context, db *sql.DB, tables itemgate.Tables) error {
	table := tables.Objects
	if !itemgate.IsValidTableName(table) {
		return fmt.Errorf("validate schema: invalid table name: %s", table)
	}

	var found string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("validate schema: table %s does not exist", table)
	case err != nil:
		return fmt.Errorf("validate schema %s: check table: %w", table, err)
	}

	actual, err := tableColumns(ctx, db, table)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", table, err)
	}

	return internal.CompareColumns(table, objectsColumns, actual)
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]internal.Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]internal.Column)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dataType   string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = internal.Column{Type: dataType, Nullable: notNull == 0 && pk == 0}
	}
	return columns, rows.Err()
}
