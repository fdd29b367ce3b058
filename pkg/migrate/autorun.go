package migrate

import (
	"context"
	"fmt"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are migrated from the GORM models since
// the SQL files target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	meta := map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver}
	ctx = logg.WithFields(ctx, meta)

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "running gorm automigrate (dev sqlite)")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("automigrate sqlite: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	fsys, err := Source("", true)
	if err != nil {
		return err
	}
	logg.Info(ctx, "running goose migrations (dev auto-run)")
	if err := Up(ctx, sqlDB, fsys); err != nil {
		return err
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
