package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/angelmondragon/aitools-scraper/internal/candidate"
	"github.com/angelmondragon/aitools-scraper/internal/runlog"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/metrics"
)

type Harvester interface {
	Harvest(ctx context.Context, sourceURL string, known map[string]struct{}) ([]string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Classifier interface {
	IsRelevant(ctx context.Context, text string, categories []string) bool
}

type Generator interface {
	Generate(ctx context.Context, text, sourceURL string) (*candidate.Record, error)
}

type Normalizer interface {
	Normalize(rec candidate.Record) (*models.Tool, error)
}

// KnownURLs lists the website URLs already in the catalog.
type KnownURLs interface {
	KnownWebsiteURLs(ctx context.Context) (map[string]struct{}, error)
}

type Params struct {
	Config     Config
	Harvester  Harvester
	Known      KnownURLs
	Fetcher    Fetcher
	Classifier Classifier
	Generator  Generator
	Normalizer Normalizer
	Persister  *Persister
	RunLog     *runlog.Writer
	Metrics    *metrics.PipelineMetrics
	Logger     *logger.Logger
}

// Orchestrator runs candidates through fetch, classify, generate, normalize
// and persist. Failures are isolated per candidate.
type Orchestrator struct {
	cfg        Config
	harvester  Harvester
	known      KnownURLs
	fetcher    Fetcher
	classifier Classifier
	generator  Generator
	normalizer Normalizer
	persister  *Persister
	runlog     *runlog.Writer
	metrics    *metrics.PipelineMetrics
	logg       *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
	delay func() time.Duration
}

func New(p Params) (*Orchestrator, error) {
	switch {
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.Harvester == nil || p.Known == nil:
		return nil, fmt.Errorf("harvester and known url source required")
	case p.Fetcher == nil || p.Classifier == nil || p.Generator == nil || p.Normalizer == nil:
		return nil, fmt.Errorf("fetcher, classifier, generator and normalizer required")
	case p.Persister == nil:
		return nil, fmt.Errorf("persister required")
	}
	if p.Config.DelayMax < p.Config.DelayMin {
		return nil, fmt.Errorf("delay max %s below delay min %s", p.Config.DelayMax, p.Config.DelayMin)
	}
	rl := p.RunLog
	if rl == nil {
		rl = runlog.Discard()
	}
	o := &Orchestrator{
		cfg:        p.Config,
		harvester:  p.Harvester,
		known:      p.Known,
		fetcher:    p.Fetcher,
		classifier: p.Classifier,
		generator:  p.Generator,
		normalizer: p.Normalizer,
		persister:  p.Persister,
		runlog:     rl,
		metrics:    p.Metrics,
		logg:       p.Logger,
		sleep:      sleepCtx,
	}
	o.delay = o.randomDelay
	return o, nil
}

// Run harvests the configured directory and processes every discovered URL
// in order. Only a failure before the first candidate is returned as an
// error; a canceled context ends the loop with a partial summary.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	ctx = o.logg.WithField(ctx, "source_url", o.cfg.SourceURL)

	known, err := o.known.KnownWebsiteURLs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("loading known website urls: %w", err)
	}

	start := time.Now()
	urls, err := o.harvester.Harvest(o.logg.WithStage(ctx, "harvest"), o.cfg.SourceURL, known)
	o.metrics.ObserveStage("harvest", time.Since(start))
	if err != nil {
		return Summary{}, fmt.Errorf("harvesting %s: %w", o.cfg.SourceURL, err)
	}
	o.metrics.SetHarvested(len(urls))
	o.logg.Info(o.logg.WithField(ctx, "urls", len(urls)), "harvest finished")

	return o.RunURLs(ctx, urls), nil
}

// RunURLs processes urls sequentially with a politeness delay between them.
func (o *Orchestrator) RunURLs(ctx context.Context, urls []string) Summary {
	var summary Summary
	for i, u := range urls {
		if ctx.Err() != nil {
			o.logg.Warn(ctx, "run canceled, stopping before remaining candidates")
			break
		}
		res := o.Process(ctx, u)
		summary.Add(res)
		o.metrics.IncCandidate(metricLabel(res))

		if i == len(urls)-1 {
			break
		}
		if err := o.sleep(ctx, o.delay()); err != nil {
			o.logg.Warn(ctx, "run canceled during delay")
			break
		}
	}
	o.logg.Info(o.logg.WithFields(ctx, map[string]any{
		"processed": summary.Processed,
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}), "pipeline run finished")
	return summary
}

// Process runs one candidate URL through every stage.
func (o *Orchestrator) Process(ctx context.Context, url string) Result {
	ctx = o.logg.WithCandidate(ctx, url)
	res := Result{URL: url, DryRun: o.cfg.DryRun}

	var text string
	err := o.stage(ctx, "fetch", func(ctx context.Context) error {
		var err error
		text, err = o.fetcher.Fetch(ctx, url)
		return err
	})
	if err != nil || strings.TrimSpace(text) == "" {
		return o.skip(ctx, res, ReasonFetch, err)
	}
	res.State = StateFetched

	var relevant bool
	_ = o.stage(ctx, "classify", func(ctx context.Context) error {
		relevant = o.classifier.IsRelevant(ctx, text, o.cfg.Categories)
		return nil
	})
	res.State = StateClassified
	if !relevant {
		return o.skip(ctx, res, ReasonNotRelevant, nil)
	}

	var rec *candidate.Record
	err = o.stage(ctx, "generate", func(ctx context.Context) error {
		var err error
		rec, err = o.generator.Generate(ctx, text, url)
		return err
	})
	if err != nil {
		return o.fail(ctx, res, ReasonGeneration, err)
	}
	res.State = StateGenerated
	res.ToolName = rec.Name
	rec.WebsiteURL = url

	tool, err := o.normalizer.Normalize(*rec)
	if err != nil {
		return o.fail(ctx, res, ReasonNormalization, err)
	}

	var out Result
	_ = o.stage(ctx, "persist", func(ctx context.Context) error {
		out = o.persister.Persist(ctx, tool)
		return out.Err
	})
	return out
}

func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(o.logg.WithStage(ctx, name))
	o.metrics.ObserveStage(name, time.Since(start))
	return err
}

func (o *Orchestrator) skip(ctx context.Context, res Result, reason string, err error) Result {
	res.State = StateSkipped
	res.Outcome = OutcomeSkipped
	res.Reason = reason
	res.Err = err
	o.record(ctx, res)
	ctx = o.logg.WithFields(ctx, map[string]any{"state": res.State, "reason": reason})
	if err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "candidate skipped")
	} else {
		o.logg.Info(ctx, "candidate skipped")
	}
	return res
}

func (o *Orchestrator) fail(ctx context.Context, res Result, reason string, err error) Result {
	res.State = StateFailed
	res.Outcome = OutcomeFailed
	res.Reason = reason
	res.Err = err
	o.record(ctx, res)
	o.logg.Error(o.logg.WithFields(ctx, map[string]any{"state": res.State, "reason": reason}), "candidate failed", err)
	return res
}

func (o *Orchestrator) record(ctx context.Context, res Result) {
	if err := o.runlog.Write(runlog.Entry{Outcome: res.String()}); err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "run log write failed")
	}
}

func (o *Orchestrator) randomDelay() time.Duration {
	span := o.cfg.DelayMax - o.cfg.DelayMin
	if span <= 0 {
		return o.cfg.DelayMin
	}
	return o.cfg.DelayMin + time.Duration(rand.Int64N(int64(span)+1))
}

func metricLabel(r Result) string {
	switch r.Outcome {
	case OutcomeDryRun:
		return "dry_run"
	case "":
		return string(r.State)
	}
	return strings.ToLower(string(r.Outcome))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
