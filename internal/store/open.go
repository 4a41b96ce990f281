package store

import (
	"context"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/migrate"
)

// Open builds the gateway selected by cfg.Store.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Gateway, error) {
	if !cfg.Store.IsSQL() {
		g, err := OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		logg.Info(logg.WithField(ctx, "database", cfg.Mongo.Database), "mongo store ready")
		return g, nil
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewSQLGateway(client, cfg.DB.QueryTimeout), nil
}
