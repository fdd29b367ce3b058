package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironmonger/hardware-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(migrate.Migrations, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(onDisk) {
		t.Fatalf("embedded=%d disk=%d migrations", len(embedded), len(onDisk))
	}
}

func TestOrdersMigrationProtectsLedger(t *testing.T) {
	checks := map[string][]string{
		"*_create_catalog.sql": {
			"CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0)",
			"price NUMERIC(12,2) NOT NULL",
		},
		"*_create_orders.sql": {
			"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_deliveries_order ON deliveries (order_id)",
			"DROP TABLE IF EXISTS orders",
		},
		"*_create_inventory_logs.sql": {
			"change INTEGER NOT NULL CHECK (change <> 0)",
			"DROP TABLE IF EXISTS inventory_logs",
		},
	}

	for pattern, statements := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil || len(matches) == 0 {
			t.Fatalf("no migration matches %s (err=%v)", pattern, err)
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		for _, sub := range statements {
			if !strings.Contains(string(data), sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Product Brand!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_product_brand.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestValidateDirRejectsUnbalancedStatementBlocks(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n\n-- +goose Down\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, "20250101000000_broken.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected unbalanced statement blocks to fail validation")
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	fsys, err := migrate.Source("", true)
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	if err := migrate.ValidateFS(fsys); err != nil {
		t.Fatalf("embedded migrations should validate: %v", err)
	}
}
