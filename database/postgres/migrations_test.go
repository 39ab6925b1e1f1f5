package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesValidSchema(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, db.Ping(ctx))
	assert.NoError(t, db.Validate(ctx))
}

func TestMigrate_Idempotent(t *testing.T) {
	db, _ := setupTestDB(t)

	assert.NoError(t, db.Migrate(context.Background()))
}

func TestDropTables(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()
	tables := itemgate.Tables{Objects: "objects_" + getRandomString(t)}

	require.NoError(t, postgres.Migrate(ctx, pool, tables))
	require.NoError(t, postgres.DropTables(ctx, pool, tables))

	err := postgres.ValidateSchema(ctx, pool, tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateSchema_Mismatch(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()
	tables := itemgate.Tables{Objects: "objects_" + getRandomString(t)}
	quoted := pgx.Identifier{tables.Objects}.Sanitize()

	_, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			key TEXT NOT NULL PRIMARY KEY,
			content_type TEXT,
			size_bytes INTEGER NOT NULL
		)`, quoted))
	require.NoError(t, err)
	t.Cleanup(func() { _ = postgres.DropTables(context.Background(), pool, tables) })

	err = postgres.ValidateSchema(ctx, pool, tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "size_bytes: expected bigint, got integer")
	assert.Contains(t, err.Error(), "content_type: expected nullable=false, got nullable=true")
}
