package app

import (
	"context"
	"fmt"

	"github.com/angelmondragon/aitools-scraper/internal/classifier"
	"github.com/angelmondragon/aitools-scraper/internal/fetcher"
	"github.com/angelmondragon/aitools-scraper/internal/generator"
	"github.com/angelmondragon/aitools-scraper/internal/harvester"
	"github.com/angelmondragon/aitools-scraper/internal/llm"
	"github.com/angelmondragon/aitools-scraper/internal/normalize"
	"github.com/angelmondragon/aitools-scraper/internal/owners"
	"github.com/angelmondragon/aitools-scraper/internal/pipeline"
	"github.com/angelmondragon/aitools-scraper/internal/runlog"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/metrics"
)

// Normalizer builds the normalizer with the configured default status.
func (d *Deps) Normalizer() (*normalize.Normalizer, error) {
	status, err := enums.ParseToolStatus(d.Config.Scraper.DefaultStatus)
	if err != nil {
		return nil, err
	}
	return normalize.New(status)
}

// Persister builds the owner/dedup/slug/insert stage.
func (d *Deps) Persister(rl *runlog.Writer, dryRun bool) (*pipeline.Persister, error) {
	return pipeline.NewPersister(pipeline.PersisterParams{
		Store:  d.Store,
		Owners: owners.NewResolver(d.Store, d.Config.Password, d.Logger),
		RunLog: rl,
		DryRun: dryRun,
		Logger: d.Logger,
	})
}

// Pipeline builds the full directory scraping pipeline from config.
func (d *Deps) Pipeline(ctx context.Context, rl *runlog.Writer, m *metrics.PipelineMetrics) (*pipeline.Orchestrator, error) {
	cfg := d.Config
	harvest, profile, err := harvester.FromConfig(cfg, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("harvester: %w", err)
	}
	fetch, err := fetcher.NewFromConfig(cfg.Fetch, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	backend, err := llm.New(cfg, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("llm backend: %w", err)
	}
	norm, err := d.Normalizer()
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	persister, err := d.Persister(rl, cfg.Scraper.DryRun)
	if err != nil {
		return nil, err
	}

	pcfg := pipeline.ConfigFrom(cfg.Scraper)
	pcfg.SourceURL = profile.SourceURL

	logCtx := d.Logger.WithFields(ctx, map[string]any{
		"source_url":   pcfg.SourceURL,
		"harvest_mode": cfg.Harvest.Mode,
		"llm_provider": cfg.LLM.Provider,
		"dry_run":      pcfg.DryRun,
	})
	d.Logger.Info(logCtx, "pipeline configured")

	return pipeline.New(pipeline.Params{
		Config:     pcfg,
		Harvester:  harvest,
		Known:      d.Store,
		Fetcher:    fetch,
		Classifier: classifier.New(backend, d.Logger),
		Generator:  generator.New(backend, d.Logger),
		Normalizer: norm,
		Persister:  persister,
		RunLog:     rl,
		Metrics:    m,
		Logger:     d.Logger,
	})
}

// RunLog opens the configured run log, or a discarding writer when the path
// is empty. The file is closed with the deps.
func (d *Deps) RunLog() (*runlog.Writer, error) {
	if d.Config.Scraper.RunLogPath == "" {
		return runlog.Discard(), nil
	}
	rl, err := runlog.Open(d.Config.Scraper.RunLogPath)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	d.onClose(rl.Close)
	return rl, nil
}
