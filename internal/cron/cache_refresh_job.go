package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/aitools-scraper/internal/catalogcache"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const JobCacheRefresh = "cache-refresh"

type approvedToolLister interface {
	ListApprovedTools(ctx context.Context) ([]models.Tool, error)
}

type catalogRefresher interface {
	Refresh(ctx context.Context, tools []models.Tool) (catalogcache.Meta, error)
}

// CacheRefreshJobParams configures the catalog cache rebuild.
type CacheRefreshJobParams struct {
	Logger *logger.Logger
	Store  approvedToolLister
	Cache  catalogRefresher
}

// NewCacheRefreshJob constructs the job that rebuilds the Redis catalog.
func NewCacheRefreshJob(params CacheRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("catalog cache required")
	}
	return &cacheRefreshJob{logg: params.Logger, store: params.Store, cache: params.Cache}, nil
}

type cacheRefreshJob struct {
	logg  *logger.Logger
	store approvedToolLister
	cache catalogRefresher
}

func (j *cacheRefreshJob) Name() string { return JobCacheRefresh }

func (j *cacheRefreshJob) Run(ctx context.Context) error {
	tools, err := j.store.ListApprovedTools(ctx)
	if err != nil {
		return fmt.Errorf("list approved tools: %w", err)
	}
	meta, err := j.cache.Refresh(ctx, tools)
	if err != nil {
		return fmt.Errorf("refresh catalog cache: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"total_tools":         meta.TotalTools,
		"featured_tools":      meta.FeaturedTools,
		"cached_individually": meta.CachedIndividually,
		"errors":              meta.Errors,
	})
	if meta.Errors > 0 {
		j.logg.Warn(logCtx, "catalog cache refreshed with serialization errors")
		return nil
	}
	j.logg.Info(logCtx, "catalog cache refreshed")
	return nil
}
