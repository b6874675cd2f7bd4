package migrate

import (
	"context"
	"fmt"

	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date at boot. SQLite always goes
// through gorm's AutoMigrate; PostgreSQL applies the bundled goose files only
// in dev with CARTA_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client.Driver() == config.DBDriverSQLite {
		logg.Info(logg.WithField(ctx, "driver", client.Driver()), "running gorm auto-migrate")
		if err := models.AutoMigrate(client.DB().WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate sqlite schema: %w", err)
		}
		return nil
	}

	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "applying bundled migrations (dev auto-run)")
	if err := Up(ctx, sqlDB, Bundled(), nil); err != nil {
		return err
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
