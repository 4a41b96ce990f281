package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/metrics"
)

const DefaultSchedule = "@every 24h"

// ErrLockHeld is returned by RunJob when another worker owns the cron lock.
var ErrLockHeld = errors.New("cron lock held by another instance")

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Schedule is a standard five field cron expression or an @-descriptor.
	Schedule string
}

// Service executes registered cron jobs on a cron schedule.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	schedule robfig.Schedule
	now      func() time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	spec := params.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := robfig.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: schedule,
		now:      time.Now,
	}, nil
}

// Registry exposes the registered jobs.
func (s *Service) Registry() *Registry { return s.registry }

// Run executes one cycle immediately, then one per schedule tick until the
// context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}

	for {
		now := s.now()
		next := s.schedule.Next(now)
		s.logg.Debug(s.logg.WithField(ctx, "next_run", next.UTC().Format(time.RFC3339)), "waiting for next cycle")
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-timer.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// RunJob runs a single named job under the cron lock and returns its error.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.registry.Find(name)
	if !ok {
		return fmt.Errorf("unknown job %q (registered: %v)", name, s.registry.Names())
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	if release == nil {
		return ErrLockHeld
	}
	defer release()
	return s.runJob(ctx, job)
}

func (s *Service) runCycle(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	if release == nil {
		skipCtx := ctx
		if hr, ok := s.lock.(holderReporter); ok {
			if holder, err := hr.Holder(ctx); err == nil && holder != "" {
				skipCtx = s.logg.WithField(ctx, "lock_holder", holder)
			}
		}
		s.logg.Info(skipCtx, "another cron instance is running; skipping this cycle")
		return nil
	}
	defer release()

	s.logg.Info(ctx, "scheduled run starting")
	for _, job := range s.registry.Jobs() {
		_ = s.runJob(ctx, job)
	}
	s.logg.Info(ctx, "scheduled run complete")
	return nil
}

// acquire returns a nil release func when the lock is held elsewhere.
func (s *Service) acquire(ctx context.Context) (func(), error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		return nil, nil
	}
	return func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := s.now()
	err := job.Run(jobCtx)
	duration := s.now().Sub(start)
	s.metrics.Record(job.Name(), duration, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}
