package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup, only in the dev
// environment with AITOOLS_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, "", nil)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "applying embedded migrations")
	if err := m.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
