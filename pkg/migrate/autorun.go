package migrate

import (
	"context"
	"fmt"

	"github.com/tapify/tapify-backend/pkg/config"
	"github.com/tapify/tapify-backend/pkg/db"
	"github.com/tapify/tapify-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot in dev when
// TAPIFY_AUTO_MIGRATE is set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "migrate.autorun.start")

	reports, err := Run(ctx, sqlDB, nil, "up")
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "applied", len(reports)), "migrate.autorun.complete")
	return nil
}
