// Package app wires config, clients and services for the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/aitools-scraper/internal/catalogcache"
	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/redis"
)

// Bootstrap loads .env (when present) and the config, then builds the
// service logger at the configured level.
func Bootstrap(service string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return nil, logg, err
	}
	cfg.Service.Kind = service

	logg = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return cfg, logg, nil
}

// Deps are the long-lived clients shared by the commands. Redis and Cache are
// nil when no redis endpoint is configured.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	Store  store.Gateway
	Redis  *redis.Client
	Cache  *catalogcache.Cache

	closers []func() error
}

// Open connects the store and, when configured or required, redis.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger, requireRedis bool) (*Deps, error) {
	gw, err := store.Open(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	deps := &Deps{Config: cfg, Logger: logg, Store: gw}

	if !cfg.Redis.Enabled() {
		if requireRedis {
			deps.Close(ctx)
			return nil, fmt.Errorf("redis is required but %s is not set", config.EnvRedisURL)
		}
		logg.Warn(ctx, "redis not configured; catalog cache disabled")
		return deps, nil
	}
	rc, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("open redis: %w", err)
	}
	deps.Redis = rc
	deps.Cache = catalogcache.New(rc, cfg.Cache)
	return deps, nil
}

// Close releases everything Open and the builders acquired, last first.
func (d *Deps) Close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Error(ctx, "error closing resource", err)
		}
	}
	d.closers = nil
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error(ctx, "error closing redis", err)
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(ctx); err != nil {
			d.Logger.Error(ctx, "error closing store", err)
		}
	}
}

func (d *Deps) onClose(fn func() error) { d.closers = append(d.closers, fn) }
