package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/aitools-scraper/internal/pipeline"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const JobDirectoryScrape = "directory-scrape"

type scrapeRunner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// DirectoryScrapeJobParams configures the scheduled scrape.
type DirectoryScrapeJobParams struct {
	Logger   *logger.Logger
	Pipeline scrapeRunner
}

// NewDirectoryScrapeJob wraps a pipeline run as a cron job. Candidate level
// failures are part of the summary; only a failed harvest fails the job.
func NewDirectoryScrapeJob(params DirectoryScrapeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pipeline == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	return &directoryScrapeJob{logg: params.Logger, pipeline: params.Pipeline}, nil
}

type directoryScrapeJob struct {
	logg     *logger.Logger
	pipeline scrapeRunner
}

func (j *directoryScrapeJob) Name() string { return JobDirectoryScrape }

func (j *directoryScrapeJob) Run(ctx context.Context) error {
	summary, err := j.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("directory scrape: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed":  summary.Processed,
		"succeeded":  summary.Succeeded,
		"skipped":    summary.Skipped,
		"duplicates": summary.Duplicates,
		"failed":     summary.Failed,
	})
	j.logg.Info(logCtx, "directory scrape complete")
	return nil
}
