package catalog

import (
	"os"
	"testing"
)

// testPostgresDSN returns the DSN for driver tests, skipping when none is
// configured so the suite stays runnable without a database.
func testPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("OPTICORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("OPTICORE_TEST_POSTGRES_DSN not set")
	}
	return dsn
}
