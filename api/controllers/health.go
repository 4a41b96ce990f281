package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/angelmondragon/aitools-scraper/api/responses"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const (
	envHeader    = "X-AITools-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is anything /health/ready should ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and reports the first one down. Nil
// pingers are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name, p := range deps {
		if p != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for _, name := range names {
			if err := deps[name].Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(map[string]any{"component": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checked": names})
	}
}
