// Package database connects itemgate to SQL databases that hold item objects
// as blobs.
//
// # Supported Backends
//
//   - PostgreSQL: pgx connection pool, objects in a BYTEA column
//   - SQLite: modernc.org/sqlite, suitable for development and single-node deployments
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "itemgate.db",
//	    Tables: itemgate.Tables{Objects: "itemgate_objects"},
//	}
//
//	db, err := database.Open(ctx, cfg, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	store, err := itemgate.NewItemStore(db.Backend(), itemgate.StoreConfig{})
//
// Open pings the database, runs migrations when asked to, and validates the
// schema. Connect only opens the connection.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
