package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/sqlite"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestDB creates a migrated in-memory database with a unique table name
func setupTestDB(t *testing.T) (*sqlite.Database, itemgate.Tables) {
	t.Helper()

	ctx := context.Background()

	tables := itemgate.Tables{Objects: fmt.Sprintf("objects_%s", getRandomString(t))}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	err = db.Migrate(ctx)
	require.NoError(t, err, "failed to migrate")

	return db, tables
}

func setupTestBackend(t *testing.T) itemgate.ObjectBackend {
	t.Helper()
	db, _ := setupTestDB(t)
	return db.Backend()
}
