package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/aitools-scraper/internal/app"
	"github.com/angelmondragon/aitools-scraper/pkg/metrics"
)

func main() {
	cfg, logg, err := app.Bootstrap("scraper")
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps, err := app.Open(ctx, cfg, logg, false)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap dependencies", err)
		os.Exit(1)
	}
	defer deps.Close(context.Background())

	rl, err := deps.RunLog()
	if err != nil {
		logg.Error(ctx, "failed to open run log", err)
		os.Exit(1)
	}

	orchestrator, err := deps.Pipeline(ctx, rl, metrics.NewPipelineMetrics(prometheus.NewRegistry()))
	if err != nil {
		logg.Error(ctx, "failed to build pipeline", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"dry_run": cfg.Scraper.DryRun,
	})
	logg.Info(ctx, "starting directory scrape")

	summary, err := orchestrator.Run(ctx)
	fmt.Println(summary.String())
	if err != nil {
		logg.Error(ctx, "directory scrape aborted", err)
		deps.Close(context.Background())
		os.Exit(1)
	}
	logg.Info(ctx, "directory scrape finished")
}
