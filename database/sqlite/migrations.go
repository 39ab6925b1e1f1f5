package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sagarc03/itemgate"
)

// quoteIdentifier quotes a SQLite identifier, doubling embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Migrate creates the objects table and its indexes if missing.
func Migrate(ctx context.Context, db *sql.DB, tables itemgate.Tables) error {
	table := quoteIdentifier(tables.Objects)
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT NOT NULL PRIMARY KEY,
			content_type TEXT NOT NULL,
			item_type TEXT NOT NULL,
			etag TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			data BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (updated_at)`,
			quoteIdentifier("idx_"+tables.Objects+"_updated_at"), table),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", tables.Objects, err)
		}
	}
	return nil
}

// DropTables removes every table Migrate creates.
func DropTables(ctx context.Context, db *sql.DB, tables itemgate.Tables) error {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(tables.Objects)); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}
