package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const JobToolRepair = "tool-repair"

type toolRepairStore interface {
	BackfillToolCounters(ctx context.Context) (store.CounterRepair, error)
	AssignMissingOwners(ctx context.Context, ownerID uuid.UUID) (int64, error)
	FindUserByRole(ctx context.Context, role enums.UserRole) (*models.User, error)
	FindAnyUser(ctx context.Context) (*models.User, error)
}

// ToolRepairJobParams configures the legacy row repair.
type ToolRepairJobParams struct {
	Logger *logger.Logger
	Store  toolRepairStore
}

// NewToolRepairJob constructs the job that zeroes missing counters and gives
// orphaned scraped tools an owner.
func NewToolRepairJob(params ToolRepairJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	return &toolRepairJob{logg: params.Logger, store: params.Store}, nil
}

type toolRepairJob struct {
	logg  *logger.Logger
	store toolRepairStore
}

func (j *toolRepairJob) Name() string { return JobToolRepair }

// Run attempts both repairs even when the first one fails.
func (j *toolRepairJob) Run(ctx context.Context) error {
	var errs error
	if err := j.backfillCounters(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := j.assignOwners(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (j *toolRepairJob) backfillCounters(ctx context.Context) error {
	repair, err := j.store.BackfillToolCounters(ctx)
	if err != nil {
		return fmt.Errorf("backfill tool counters: %w", err)
	}
	if repair.Total() == 0 {
		j.logg.Info(ctx, "tool counters already complete")
		return nil
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"total":         repair.Total(),
		"ratings":       repair.Ratings,
		"analytics":     repair.Analytics,
		"comment_stats": repair.CommentStats,
		"media_stats":   repair.MediaStats,
	})
	j.logg.Info(logCtx, "tool counters backfilled")
	return nil
}

func (j *toolRepairJob) assignOwners(ctx context.Context) error {
	owner, err := j.fallbackOwner(ctx)
	if err != nil {
		return err
	}
	if owner == nil {
		j.logg.Warn(ctx, "no users exist; orphaned tools left without owner")
		return nil
	}
	n, err := j.store.AssignMissingOwners(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("assign missing owners: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"owner_id": owner.ID.String(), "count": n})
	j.logg.Info(logCtx, "orphaned tools assigned")
	return nil
}

// fallbackOwner prefers the first admin, then any user. nil means no users.
func (j *toolRepairJob) fallbackOwner(ctx context.Context) (*models.User, error) {
	admin, err := j.store.FindUserByRole(ctx, enums.UserRoleAdmin)
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find admin user: %w", err)
	}
	user, err := j.store.FindAnyUser(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find any user: %w", err)
	}
	return nil, nil
}
