package pipeline

import (
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
)

// Config is fixed for the lifetime of an Orchestrator.
type Config struct {
	SourceURL  string
	Categories []string
	DryRun     bool
	DelayMin   time.Duration
	DelayMax   time.Duration
}

func ConfigFrom(cfg config.ScraperConfig) Config {
	cats := make([]string, len(cfg.Categories))
	copy(cats, cfg.Categories)
	return Config{
		SourceURL:  cfg.SourceURL,
		Categories: cats,
		DryRun:     cfg.DryRun,
		DelayMin:   cfg.DelayMin,
		DelayMax:   cfg.DelayMax,
	}
}
