package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	testDSNOnce sync.Once
	testDSN     string
	testDSNErr  error
	testCleanup func()
)

// getSharedPostgresDatabase starts one postgres container for the whole
// run and returns its DSN. TestMain terminates it.
func getSharedPostgresDatabase(t *testing.T) string {
	t.Helper()

	testDSNOnce.Do(func() {
		ctx := context.Background()

		container, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("itemgate"),
			pgcontainer.WithUsername("itemgate"),
			pgcontainer.WithPassword("itemgate"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testDSNErr = err
			return
		}

		testCleanup = func() {
			_ = testcontainers.TerminateContainer(container)
		}

		testDSN, testDSNErr = container.ConnectionString(ctx, "sslmode=disable")
	})

	if testDSNErr != nil {
		t.Fatalf("failed to start postgres container: %v", testDSNErr)
	}
	return testDSN
}
