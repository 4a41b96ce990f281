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
	"github.com/angelmondragon/aitools-scraper/api/routes"
	"github.com/angelmondragon/aitools-scraper/internal/app"
	"github.com/angelmondragon/aitools-scraper/pkg/env"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, logg, err := app.Bootstrap("api")
	if err != nil {
		os.Exit(1)
	}

	deps, err := app.Open(context.Background(), cfg, logg, false)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap dependencies", err)
		os.Exit(1)
	}
	defer deps.Close(context.Background())

	params := routes.Params{
		Config:   cfg,
		Logger:   logg,
		Catalog:  deps.Store,
		Admin:    deps.Store,
		Store:    deps.Store,
		Gatherer: prometheus.DefaultGatherer,
	}
	// typed nils would defeat the router's nil checks
	if deps.Redis != nil {
		params.Cache = deps.Cache
		params.Invalidator = deps.Cache
		params.RateLimiter = deps.Redis
		params.Redis = deps.Redis
	}

	server := api.NewServer(cfg.App, routes.NewRouter(params))

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": env.First("local", "DYNO"),
	})
	logg.Info(ctx, "starting api server")

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		deps.Close(context.Background())
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
