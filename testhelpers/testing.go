package testhelpers

import (
	"context"
	"os"
	"testing"

	"ledgerimport/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema. The test
// is skipped when the variable is not set.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return &TestDB{Pool: pool, Cleanup: pool.Close}
}

// SetupTestTenant returns a fresh tenant id whose ledger rows are removed when
// the test ends.
func SetupTestTenant(t *testing.T, db *TestDB) uuid.UUID {
	t.Helper()

	tenantID := uuid.New()
	t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range []string{"journal_entry_lines", "journal_entries", "chart_of_accounts", "journals", "audit_logs"} {
			if _, err := db.Pool.Exec(ctx, "DELETE FROM "+table+" WHERE tenant_id = $1", tenantID); err != nil {
				t.Logf("Failed to clean %s for tenant %s: %v", table, tenantID, err)
			}
		}
	})
	return tenantID
}

// CountRows counts the tenant's rows in table.
func CountRows(t *testing.T, db *TestDB, table string, tenantID uuid.UUID) int {
	t.Helper()

	var n int
	if err := db.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table+" WHERE tenant_id = $1", tenantID).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
