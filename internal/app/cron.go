package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/aitools-scraper/internal/cron"
	"github.com/angelmondragon/aitools-scraper/pkg/metrics"
)

// CronService registers the maintenance jobs in run order and guards them
// with the redis lock. The scrape job is only registered when the scheduled
// scrape flag is on.
func (d *Deps) CronService(ctx context.Context, reg prometheus.Registerer) (*cron.Service, error) {
	if d.Redis == nil {
		return nil, fmt.Errorf("cron service requires redis")
	}
	cfg := d.Config

	var jobs []cron.Job

	repair, err := cron.NewToolRepairJob(cron.ToolRepairJobParams{Logger: d.Logger, Store: d.Store})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, repair)

	slugs, err := cron.NewSlugBackfillJob(cron.SlugBackfillJobParams{Logger: d.Logger, Store: d.Store})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, slugs)

	if cfg.FeatureFlags.ScheduledScrape {
		rl, err := d.RunLog()
		if err != nil {
			return nil, err
		}
		orchestrator, err := d.Pipeline(ctx, rl, metrics.NewPipelineMetrics(reg))
		if err != nil {
			return nil, err
		}
		scrape, err := cron.NewDirectoryScrapeJob(cron.DirectoryScrapeJobParams{Logger: d.Logger, Pipeline: orchestrator})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, scrape)
	}

	refresh, err := cron.NewCacheRefreshJob(cron.CacheRefreshJobParams{Logger: d.Logger, Store: d.Store, Cache: d.Cache})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, refresh)

	registry := cron.NewRegistry()
	if err := registry.Register(jobs...); err != nil {
		return nil, err
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(d.Redis, d.Redis.LockKey("cron:"+env), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   d.Logger,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Schedule: cfg.Cron.Schedule,
	})
}
