package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/aitools-scraper/api/controllers"
	"github.com/angelmondragon/aitools-scraper/api/middleware"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

// Params wires the catalog API. Cache, Invalidator, RateLimiter and Redis may
// be nil when redis is not configured; the routes then read the store
// directly. The admin routes are mounted only with Admin set and a JWT secret
// configured.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Catalog     controllers.CatalogReader
	Cache       controllers.CatalogCache
	Invalidator controllers.CatalogInvalidator
	Admin       controllers.AdminStore
	RateLimiter middleware.RateLimiterStore
	Store       controllers.Pinger
	Redis       controllers.Pinger
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Mount("/health", OpsRouter(cfg, logg, map[string]controllers.Pinger{
		"store": p.Store,
		"redis": p.Redis,
	}, nil))
	r.Handle("/metrics", metricsHandler(p.Gatherer))

	catalogPolicy := middleware.NewRateLimitPolicy("catalog", cfg.API.RateLimitWindow, cfg.API.RateLimitPerIP)

	r.Route("/api/v1/tools", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.API.CORSOrigins))
		r.Use(middleware.RateLimit(catalogPolicy, p.RateLimiter, logg))

		r.Get("/", controllers.ListTools(p.Catalog, p.Cache, logg))
		r.Get("/featured", controllers.FeaturedTools(p.Catalog, p.Cache, logg))
		r.Get("/slug/{slug}", controllers.ToolBySlug(p.Catalog, p.Cache, logg))
		r.Get("/{id}", controllers.ToolByID(p.Catalog, p.Cache, logg))
	})

	if p.Admin != nil && cfg.JWT.Enabled() {
		mountAdmin(r, p)
	}

	return r
}

func mountAdmin(r chi.Router, p Params) {
	cfg, logg := p.Config, p.Logger
	loginPolicy := middleware.NewRateLimitPolicy("admin-login", cfg.API.LoginRateLimitWindow, cfg.API.LoginRateLimitPerIP)

	r.Route("/api/v1/auth/admin", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.API.CORSOrigins, http.MethodPost))
		r.Use(middleware.RateLimit(loginPolicy, p.RateLimiter, logg))
		r.Post("/login", controllers.AdminLogin(p.Admin, cfg.JWT, logg))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.API.CORSOrigins, http.MethodGet, http.MethodPut))
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Get("/stats", controllers.AdminStats(p.Admin, logg))
		r.Get("/tools", controllers.AdminToolsByStatus(p.Admin, logg))
		r.Get("/tools/pending", controllers.AdminToolsByStatus(p.Admin, logg))
		r.Put("/tools/{id}", controllers.ModerateTool(p.Admin, p.Invalidator, logg))
	})
}

// OpsRouter serves /live and /ready, plus /metrics when gatherer is set. The
// cron worker mounts it on its own port.
func OpsRouter(cfg *config.Config, logg *logger.Logger, deps map[string]controllers.Pinger, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/live", controllers.HealthLive(cfg))
	r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	if gatherer != nil {
		r.Handle("/metrics", metricsHandler(gatherer))
	}
	return r
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
