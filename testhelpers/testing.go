package testhelpers

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryHeader is the column set every inventory fixture carries
var InventoryHeader = []string{"Item_Name", "Current_Stock", "Daily_Usage_Base", "Expiry_Date"}

// SampleRows covers each status tier plus a row with no runway
var SampleRows = [][]string{
	{"Amoxicillin", "40", "10", "2026-05-01"},
	{"Saline", "100", "10", "2026-03-01"},
	{"Gauze", "140", "10", "2026-12-01"},
	{"Bandages", "50", "0", "2026-02-01"},
}

// WriteInventoryCSV writes header and rows to name inside a fresh temp dir and returns the path
func WriteInventoryCSV(t *testing.T, name string, header []string, rows ...[]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create fixture %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("Failed to write fixture header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("Failed to write fixture rows: %v", err)
	}
	return path
}

// TestDB holds a pooled connection and a scratch inventory table
type TestDB struct {
	Pool    *pgxpool.Pool
	Table   string
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL and creates a uniquely named inventory table.
// The test is skipped when no database is configured or -short is set.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	table := "inventory_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	query := `CREATE TABLE ` + table + ` (
		item_name        TEXT NOT NULL,
		current_stock    NUMERIC NOT NULL,
		daily_usage_base NUMERIC NOT NULL,
		expiry_date      DATE NOT NULL
	)`
	if _, err := pool.Exec(ctx, query); err != nil {
		pool.Close()
		t.Fatalf("Failed to create test table: %v", err)
	}

	db := &TestDB{Pool: pool, Table: table}
	db.Cleanup = func() {
		_, _ = pool.Exec(context.Background(), `DROP TABLE IF EXISTS `+table)
		pool.Close()
	}
	t.Cleanup(db.Cleanup)
	return db
}

// SeedInventory inserts rows shaped like SampleRows into the scratch table
func SeedInventory(t *testing.T, db *TestDB, rows ...[]string) {
	t.Helper()

	query := `INSERT INTO ` + db.Table + ` (item_name, current_stock, daily_usage_base, expiry_date) VALUES ($1, $2, $3, $4)`
	for _, row := range rows {
		if _, err := db.Pool.Exec(context.Background(), query, row[0], row[1], row[2], row[3]); err != nil {
			t.Fatalf("Failed to seed %s: %v", row[0], err)
		}
	}
}
