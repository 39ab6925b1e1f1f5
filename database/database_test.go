package database_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func newTestConfig(tableName string) database.Config {
	return database.Config{
		Type:   "sqlite",
		DSN:    ":memory:",
		Tables: itemgate.Tables{Objects: tableName},
	}
}

func setupTestDB(t *testing.T, tableName string) database.Database {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig(tableName))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func setupTestDBWithMigration(t *testing.T, tableName string) database.Database {
	t.Helper()
	ctx := context.Background()

	db := setupTestDB(t, tableName)

	err := db.Migrate(ctx)
	require.NoError(t, err)

	return db
}

// Tests for Connect routing logic

func TestConnect_SQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, "test_objects")

	err := db.Ping(ctx)
	assert.NoError(t, err)
}

func TestConnect_InvalidType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dbType  string
		wantErr string
	}{
		{name: "unknown", dbType: "invalid", wantErr: "unsupported database type"},
		{name: "empty", dbType: "", wantErr: "unsupported database type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := database.Config{
				Type:   tt.dbType,
				DSN:    ":memory:",
				Tables: itemgate.Tables{Objects: "test_objects"},
			}

			_, err := database.Connect(context.Background(), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnect_InvalidTables(t *testing.T) {
	t.Parallel()

	_, err := database.Connect(context.Background(), newTestConfig("Objects-Table"))
	assert.Error(t, err)
}

// Tests for Database interface methods

func TestDatabase_Migrate_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, "migrate_idem_test")

	err := db.Migrate(ctx)
	require.NoError(t, err)

	err = db.Migrate(ctx)
	assert.NoError(t, err, "migrate should be idempotent")
}

func TestDatabase_Validate_BeforeMigration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, "validate_before_test")

	err := db.Validate(ctx)
	assert.Error(t, err, "validate should fail without tables")
}

func TestDatabase_Validate_AfterMigration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDBWithMigration(t, "validate_after_test")

	err := db.Validate(ctx)
	assert.NoError(t, err, "validate should pass after migration")
}

func TestDatabase_Backend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDBWithMigration(t, "backend_test")

	backend := db.Backend()
	require.NotNil(t, backend)

	_, err := backend.Put(ctx, "U/1/ORIGINAL/file.txt", bytes.NewReader([]byte("data")), itemgate.ObjectMeta{ContentType: "text/plain", ItemType: "text"})
	require.NoError(t, err)

	entries, err := backend.List(ctx, "U/1/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "U/1/ORIGINAL/file.txt", entries[0].Key)
}

func TestDatabase_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig("close_test"))
	require.NoError(t, err)

	err = db.Close()
	assert.NoError(t, err)

	err = db.Ping(ctx)
	assert.Error(t, err, "ping should fail after close")
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("auto migrate", func(t *testing.T) {
		db, err := database.Open(ctx, newTestConfig("open_migrate"), true)
		require.NoError(t, err)
		defer db.Close()

		assert.NoError(t, db.Validate(ctx))
	})

	t.Run("without migration fails validation", func(t *testing.T) {
		_, err := database.Open(ctx, newTestConfig("open_nomigrate"), false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate sqlite schema")
	})
}

// Note: Postgres-specific tests are in database/postgres package.
