package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/aitools-scraper/internal/slug"
	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const (
	JobSlugBackfill = "slug-backfill"

	slugBackfillRetries = 3
)

type slugBackfillStore interface {
	ListToolsMissingSlug(ctx context.Context) ([]models.Tool, error)
	ToolSlugExists(ctx context.Context, slug string) (bool, error)
	SetToolSlug(ctx context.Context, id uuid.UUID, slug string) error
}

// SlugBackfillJobParams configures the slug backfill.
type SlugBackfillJobParams struct {
	Logger *logger.Logger
	Store  slugBackfillStore
}

// NewSlugBackfillJob constructs the job that gives every slugless tool a
// unique slug derived from its name.
func NewSlugBackfillJob(params SlugBackfillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	return &slugBackfillJob{logg: params.Logger, store: params.Store}, nil
}

type slugBackfillJob struct {
	logg  *logger.Logger
	store slugBackfillStore
}

func (j *slugBackfillJob) Name() string { return JobSlugBackfill }

func (j *slugBackfillJob) Run(ctx context.Context) error {
	tools, err := j.store.ListToolsMissingSlug(ctx)
	if err != nil {
		return fmt.Errorf("list tools missing slug: %w", err)
	}
	var (
		errs    error
		updated int
	)
	for i := range tools {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if err := j.assign(ctx, &tools[i]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		updated++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"candidates": len(tools), "updated": updated})
	j.logg.Info(logCtx, "slug backfill complete")
	return errs
}

func (j *slugBackfillJob) assign(ctx context.Context, tool *models.Tool) error {
	base, start := slug.Make(tool.Name), 0
	if base == "" {
		base, start = slug.FallbackBase, 1
	}
	for attempt := 0; ; attempt++ {
		candidate, n, err := slug.Unique(ctx, base, start, j.store.ToolSlugExists)
		if err != nil {
			return fmt.Errorf("tool %s: %w", tool.ID, err)
		}
		err = j.store.SetToolSlug(ctx, tool.ID, candidate)
		if err == nil {
			tool.Slug = candidate
			return nil
		}
		if store.ConflictField(err) != store.FieldSlug || attempt >= slugBackfillRetries {
			return fmt.Errorf("tool %s: set slug %q: %w", tool.ID, candidate, err)
		}
		start = n + 1
	}
}
