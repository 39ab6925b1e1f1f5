package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/itemgate"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database provides SQLite database operations.
type Database struct {
	db     *sql.DB
	tables itemgate.Tables
}

// Connect opens a SQLite database. Tables should be validated before
// calling Connect.
func Connect(ctx context.Context, dsn string, tables itemgate.Tables) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// one connection: SQLite serializes writers anyway, and every
	// ":memory:" connection would otherwise see its own database
	db.SetMaxOpenConns(1)

	return &Database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *Database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// Backend returns the object backend stored in the objects table.
func (d *Database) Backend() itemgate.ObjectBackend {
	return &Backend{db: d.db, tableName: d.tables.Objects}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
