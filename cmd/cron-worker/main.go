package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/aitools-scraper/api"
	"github.com/angelmondragon/aitools-scraper/api/controllers"
	"github.com/angelmondragon/aitools-scraper/api/routes"
	"github.com/angelmondragon/aitools-scraper/internal/app"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, logg, err := app.Bootstrap("cron-worker")
	if err != nil {
		os.Exit(1)
	}

	deps, err := app.Open(context.Background(), cfg, logg, true)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap dependencies", err)
		os.Exit(1)
	}
	defer deps.Close(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"schedule":    cfg.Cron.Schedule,
	})

	service, err := deps.CronService(ctx, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		deps.Close(context.Background())
		os.Exit(1)
	}

	ops := api.NewServer(cfg.App, routes.OpsRouter(cfg, logg, map[string]controllers.Pinger{
		"store": deps.Store,
		"redis": deps.Redis,
	}, prometheus.DefaultGatherer))
	go func() {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "ops server stopped unexpectedly", err)
		}
	}()

	logg.Info(ctx, "starting cron worker")

	runErr := service.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "ops server shutdown failed", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", runErr)
		deps.Close(context.Background())
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}
