package api

import (
	"net/http"
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/env"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
)

// NewServer returns the http.Server cmd/api and cmd/cron-worker listen with.
// PORT wins over AITOOLS_APP_PORT for platforms that assign one.
func NewServer(cfg config.AppConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + env.First(cfg.Port, "PORT"),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
