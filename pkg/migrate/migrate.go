package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/pressly/goose/v3"
)

// DefaultDir holds one subdirectory of migrations per dialect.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedded embed.FS

// Dialects with a migration subdirectory.
var Dialects = []string{config.DriverPostgres, config.DriverSQLite}

// DialectDir returns the migrations directory for dialect under base.
func DialectDir(base, dialect string) string {
	return filepath.Join(base, dialect)
}

func gooseDialect(dialect string) (string, error) {
	switch dialect {
	case config.DriverPostgres:
		return "postgres", nil
	case config.DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}

// Run executes a goose command against migrations on disk under dir/<dialect>.
func Run(ctx context.Context, db *sql.DB, dialect, dir, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	name, err := gooseDialect(dialect)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(nil)

	// RunContext prints status output to stdout (goose internal)
	if err := goose.RunContext(ctx, command, db, DialectDir(dir, dialect), args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// RunEmbedded executes a goose command against the migrations compiled into the binary.
func RunEmbedded(ctx context.Context, db *sql.DB, dialect, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	name, err := gooseDialect(dialect)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(embedded)
	defer goose.SetBaseFS(nil)

	if err := goose.RunContext(ctx, command, db, path.Join("migrations", dialect), args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, dir, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	name, err := gooseDialect(dialect)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(nil)

	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	migrations := DialectDir(dir, dialect)
	switch {
	case current == target:
		return nil

	case current < target:
		if err := goose.UpToContext(ctx, db, migrations, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil

	default:
		if err := goose.DownToContext(ctx, db, migrations, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
