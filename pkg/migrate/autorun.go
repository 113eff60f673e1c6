package migrate

import (
	"context"
	"fmt"

	"github.com/amaiabotanic/storefront/pkg/config"
	"github.com/amaiabotanic/storefront/pkg/db"
	"github.com/amaiabotanic/storefront/pkg/logger"
)

// MaybeRunDev applies migrations on boot when running in dev with the
// auto-migrate flag on, or whenever the SQL cart store uses SQLite.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return nil
	}
	autoRun := cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
	if !autoRun && client.Driver() != config.DBDriverSQLite {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})
	logg.Info(ctx, "running goose migrations on boot")

	if err := Run(ctx, sqlDB, client.Driver(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
