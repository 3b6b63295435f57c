package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate shipped migrations: %v", err)
	}
}

func TestRecordsMigrationContainsSchema(t *testing.T) {
	for _, dialect := range Dialects {
		matches, err := filepath.Glob(filepath.Join("migrations", dialect, "*_create_records_table.sql"))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one records migration for %s, got %d", dialect, len(matches))
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		for _, sub := range []string{"CREATE TABLE IF NOT EXISTS records", "collection TEXT NOT NULL", "idx_records_collection_id"} {
			if !strings.Contains(string(data), sub) {
				t.Errorf("%s migration missing %q", dialect, sub)
			}
		}
	}
}

func TestRunEmbeddedSQLite(t *testing.T) {
	dsn := "file:migrate_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	if err := RunEmbedded(context.Background(), sqlDB, config.DriverSQLite, "up"); err != nil {
		t.Fatalf("run embedded up: %v", err)
	}

	var count int64
	if err := conn.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'records'").Scan(&count).Error; err != nil {
		t.Fatalf("inspect schema: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected records table to exist")
	}
}

func TestRunRejectsUnknownDialect(t *testing.T) {
	if err := RunEmbedded(context.Background(), nil, "mysql", "up"); err == nil {
		t.Fatal("expected error for nil db")
	}
	if _, err := gooseDialect("mysql"); err == nil {
		t.Fatal("expected unsupported dialect error")
	}
}

func TestCreateAndValidate(t *testing.T) {
	dir := t.TempDir()
	paths, err := CreateSQLMigration(dir, "Add Order Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if len(paths) != len(Dialects) {
		t.Fatalf("expected one file per dialect, got %d", len(paths))
	}
	if !strings.HasSuffix(paths[0], "_add_order_index.sql") {
		t.Fatalf("unexpected filename %s", paths[0])
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("validate created migrations: %v", err)
	}

	if err := os.Remove(paths[1]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected mismatch between dialects to fail validation")
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	if _, err := CreateSQLMigration(t.TempDir(), "!!!"); err == nil {
		t.Fatal("expected error for unusable name")
	}
}
