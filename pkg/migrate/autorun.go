package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when the app runs in dev mode with
// auto-migrate enabled. SQLite databases are always migrated since they are local.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	dialect := cfg.DB.Dialect()
	if dialect != config.DriverSQLite && (!cfg.App.IsDev() || !cfg.DB.AutoMigrate) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": dialect})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := RunEmbedded(ctx, sqlDB, dialect, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
