package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/aitools-scraper/internal/catalogcache"
	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/internal/store/storetest"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/metrics"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memRedis struct {
	data   map[string]string
	counts map[string]int64
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memRedis) DeleteMatching(_ context.Context, pattern string) (int64, error) {
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

type fixture struct {
	handler http.Handler
	gateway store.Gateway
	redis   *memRedis
	tools   map[string]*models.Tool
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		API: config.APIConfig{RateLimitWindow: time.Minute, RateLimitPerIP: 1000},
	}
}

func newFixture(t *testing.T, cfg *config.Config, storePing error) *fixture {
	t.Helper()
	gw, _ := storetest.OpenSQLite(t)
	ctx := context.Background()

	owner := &models.User{
		CompanyName:  "Acme",
		Email:        "contact@acme.ai-tools.com",
		PasswordHash: "hash",
		Role:         enums.UserRoleUser,
		Source:       enums.UserSourceScraped,
	}
	if err := gw.InsertUser(ctx, owner); err != nil {
		t.Fatalf("insert owner: %v", err)
	}

	tools := map[string]*models.Tool{}
	for _, spec := range []struct {
		name, slug string
		featured   bool
		status     enums.ToolStatus
	}{
		{"GradeRank", "graderank", true, enums.ToolStatusApproved},
		{"Copy AI", "copy-ai", false, enums.ToolStatusApproved},
		{"Hidden", "hidden", false, enums.ToolStatusPending},
	} {
		tool := &models.Tool{
			Name:        spec.name,
			Tagline:     "tagline",
			Description: "description",
			Slug:        spec.slug,
			WebsiteURL:  "https://" + spec.slug + ".example",
			Tags:        types.Tags{"seo"},
			Status:      spec.status,
			IsFeatured:  spec.featured,
			Source:      enums.ToolSourceScraped,
			SubmittedBy: &owner.ID,
			Visual:      types.Visual{}.WithDefaults(),
		}
		if err := gw.InsertTool(ctx, tool); err != nil {
			t.Fatalf("insert %s: %v", spec.name, err)
		}
		tools[spec.slug] = tool
	}

	mem := newMemRedis()
	cache := catalogcache.New(mem, config.CacheConfig{})
	handler := NewRouter(Params{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "api-test"}),
		Catalog:     gw,
		Cache:       cache,
		Invalidator: cache,
		Admin:       gw,
		RateLimiter: mem,
		Store:       stubPinger{err: storePing},
		Redis:       stubPinger{},
		Gatherer:    prometheus.NewRegistry(),
	})
	return &fixture{handler: handler, gateway: gw, redis: mem, tools: tools}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "9.9.9.9:1234"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestListToolsReadsThroughCache(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	rec := f.get(t, "/api/v1/tools")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected first read to miss, got %q", rec.Header().Get("X-Cache"))
	}
	var tools []map[string]any
	decodeData(t, rec, &tools)
	if len(tools) != 2 {
		t.Fatalf("expected only approved tools, got %d", len(tools))
	}
	if tools[0]["name"] != "GradeRank" {
		t.Fatalf("expected featured tool first, got %v", tools[0]["name"])
	}
	if _, ok := f.redis.data[catalogcache.KeyAllTools]; !ok {
		t.Fatal("expected allTools written back")
	}

	rec = f.get(t, "/api/v1/tools")
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected second read to hit, got %q", rec.Header().Get("X-Cache"))
	}
}

func TestFeaturedTools(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	rec := f.get(t, "/api/v1/tools/featured")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tools []map[string]any
	decodeData(t, rec, &tools)
	if len(tools) != 1 || tools[0]["slug"] != "graderank" {
		t.Fatalf("unexpected featured tools %v", tools)
	}
}

func TestToolLookups(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	copyAI := f.tools["copy-ai"]

	rec := f.get(t, "/api/v1/tools/"+copyAI.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("by id: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tool map[string]any
	decodeData(t, rec, &tool)
	if tool["_id"] != copyAI.ID.String() || tool["websiteUrl"] != "https://copy-ai.example" {
		t.Fatalf("unexpected tool %v", tool)
	}

	rec = f.get(t, "/api/v1/tools/slug/copy-ai")
	if rec.Code != http.StatusOK {
		t.Fatalf("by slug: expected 200, got %d", rec.Code)
	}
	if _, ok := f.redis.data[catalogcache.SlugKey("copy-ai")]; !ok {
		t.Fatal("expected slug key cached")
	}

	cases := map[string]int{
		"/api/v1/tools/slug/hidden":                          http.StatusNotFound,
		"/api/v1/tools/slug/missing":                         http.StatusNotFound,
		"/api/v1/tools/" + f.tools["hidden"].ID.String():     http.StatusNotFound,
		"/api/v1/tools/not-a-uuid":                           http.StatusBadRequest,
		"/api/v1/tools/00000000-0000-0000-0000-000000000000": http.StatusNotFound,
	}
	for target, want := range cases {
		if rec := f.get(t, target); rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", target, want, rec.Code)
		}
	}
	if _, ok := f.redis.data[catalogcache.SlugKey("missing")]; ok {
		t.Fatal("misses must not be cached")
	}
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	if rec := f.get(t, "/health/live"); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	rec := f.get(t, "/health/ready")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-AITools-Env") != "test" {
		t.Fatalf("expected env header, got %q", rec.Header().Get("X-AITools-Env"))
	}

	t.Run("store down", func(t *testing.T) {
		down := newFixture(t, testConfig(), errors.New("connection refused"))
		rec := down.get(t, "/health/ready")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("ready with store down: expected 503, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"component":"store"`) {
			t.Fatalf("expected failing component in body, got %s", rec.Body.String())
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := metrics.NewPipelineMetrics(reg)
	pm.SetHarvested(4)

	cfg := testConfig()
	handler := NewRouter(Params{Config: cfg, Logger: logger.New(logger.Options{ServiceName: "api-test"}), Gatherer: reg})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pipeline_harvested_urls 4") {
		t.Fatalf("expected pipeline gauge in output, got %s", rec.Body.String())
	}
}

func TestCatalogRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.API.RateLimitPerIP = 1
	f := newFixture(t, cfg, nil)

	if rec := f.get(t, "/api/v1/tools"); rec.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rec.Code)
	}
	if rec := f.get(t, "/api/v1/tools"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request limited, got %d", rec.Code)
	}
	if rec := f.get(t, "/health/live"); rec.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", rec.Code)
	}
}
