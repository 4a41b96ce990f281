package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aitools-scraper/internal/candidate"
	"github.com/angelmondragon/aitools-scraper/internal/classifier"
	"github.com/angelmondragon/aitools-scraper/internal/generator"
	"github.com/angelmondragon/aitools-scraper/internal/normalize"
	"github.com/angelmondragon/aitools-scraper/internal/owners"
	"github.com/angelmondragon/aitools-scraper/internal/runlog"
	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/internal/store/storetest"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

var fastArgon = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

const finalPrefix = "From the summary of "

// modelBackend answers the classifier and generator prompts from fixtures.
type modelBackend struct {
	mu          sync.Mutex
	names       map[string]string
	classifyErr error
	calls       int
}

func (b *modelBackend) Generate(_ context.Context, prompt string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	switch {
	case strings.HasPrefix(prompt, "Is this AI tool for"):
		if b.classifyErr != nil {
			return "", b.classifyErr
		}
		if strings.Contains(prompt, "casino") {
			return "No.", nil
		}
		return "Yes, it is.", nil
	case strings.HasPrefix(prompt, "Summarize"):
		return "A tool summary.", nil
	case strings.HasPrefix(prompt, finalPrefix):
		url := strings.TrimSuffix(strings.Fields(strings.TrimPrefix(prompt, finalPrefix))[0], ",")
		name, ok := b.names[url]
		if !ok {
			return "I could not find anything useful.", nil
		}
		return fmt.Sprintf(`Here you go: {"name":%q,"tagline":"Rank pages","description":"Ranks your pages.","tags":"seo, ranking ,","visual":{"color":"blue","content":[{"icon":"zap","text":"Fast"}]}} Enjoy!`, name), nil
	}
	return "", fmt.Errorf("unexpected prompt %q", prompt)
}

type pageFetcher map[string]string

func (p pageFetcher) Fetch(_ context.Context, url string) (string, error) {
	text, ok := p[url]
	if !ok {
		return "", errors.New("connection refused")
	}
	return text, nil
}

type listHarvester struct {
	urls  []string
	err   error
	known map[string]struct{}
}

func (h *listHarvester) Harvest(_ context.Context, _ string, known map[string]struct{}) ([]string, error) {
	h.known = known
	return h.urls, h.err
}

type fixture struct {
	gw        *store.SQLGateway
	backend   *modelBackend
	harvester *listHarvester
	log       *bytes.Buffer
	orch      *Orchestrator
}

func newFixture(t *testing.T, dryRun bool, urls []string) *fixture {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	gw, _ := storetest.OpenSQLite(t)

	backend := &modelBackend{names: map[string]string{
		"https://graderank.ai":     "GradeRank",
		"https://graderank.io":     "GradeRank",
		"https://existing.example": "Existing App",
	}}
	pages := pageFetcher{
		"https://graderank.ai":       "GradeRank ranks your SEO pages.",
		"https://graderank.io":       "GradeRank mirror for SEO.",
		"https://existing.example":   "Existing marketing suite.",
		"https://casino.example":     "Play online casino games.",
		"https://blank.example":      "   ",
		"https://bad-output.example": "A marketing tool with no name.",
	}

	norm, err := normalize.New("")
	require.NoError(t, err)

	var buf bytes.Buffer
	rl := runlog.New(&buf)
	persister, err := NewPersister(PersisterParams{
		Store:  gw,
		Owners: owners.NewResolver(gw, fastArgon, logg),
		RunLog: rl,
		DryRun: dryRun,
		Logger: logg,
	})
	require.NoError(t, err)

	h := &listHarvester{urls: urls}
	orch, err := New(Params{
		Config: Config{
			SourceURL:  "https://directory.example/",
			Categories: []string{"seo", "marketing"},
			DryRun:     dryRun,
			DelayMin:   3 * time.Second,
			DelayMax:   7 * time.Second,
		},
		Harvester:  h,
		Known:      gw,
		Fetcher:    pages,
		Classifier: classifier.New(backend, logg),
		Generator:  generator.New(backend, logg),
		Normalizer: norm,
		Persister:  persister,
		RunLog:     rl,
		Logger:     logg,
	})
	require.NoError(t, err)
	orch.sleep = func(ctx context.Context, d time.Duration) error {
		if d < 3*time.Second || d > 7*time.Second {
			t.Errorf("delay %s outside the configured window", d)
		}
		return ctx.Err()
	}

	return &fixture{gw: gw, backend: backend, harvester: h, log: &buf, orch: orch}
}

func seedExistingTool(t *testing.T, gw store.Gateway) {
	t.Helper()
	ctx := context.Background()
	owner := &models.User{CompanyName: "Seed", Email: "seed@example.com", PasswordHash: "h", Role: enums.UserRoleAdmin, Source: enums.UserSourceListed}
	require.NoError(t, gw.InsertUser(ctx, owner))
	require.NoError(t, gw.InsertTool(ctx, &models.Tool{
		Name: "Existing", Tagline: "t", Description: "d", Slug: "existing",
		WebsiteURL: "https://existing.example", Tags: types.Tags{},
		Status: enums.ToolStatusApproved, Source: enums.ToolSourceScraped, SubmittedBy: &owner.ID,
		Visual: types.Visual{}.WithDefaults(),
	}))
}

func TestRunGradeRankEndToEnd(t *testing.T) {
	urls := []string{
		"https://graderank.ai",
		"https://graderank.io",
		"https://casino.example",
		"https://down.example",
		"https://existing.example",
		"https://blank.example",
		"https://bad-output.example",
	}
	f := newFixture(t, false, urls)
	seedExistingTool(t, f.gw)
	ctx := context.Background()

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, f.harvester.known, "https://existing.example")

	assert.Equal(t, 7, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 1, summary.Failed)

	byURL := map[string]Result{}
	for _, r := range summary.Results {
		byURL[r.URL] = r
	}
	assert.Equal(t, "graderank", byURL["https://graderank.ai"].Slug)
	assert.Equal(t, "graderank-1", byURL["https://graderank.io"].Slug)
	assert.Equal(t, ReasonNotRelevant, byURL["https://casino.example"].Reason)
	assert.Equal(t, ReasonFetch, byURL["https://down.example"].Reason)
	assert.Equal(t, ReasonFetch, byURL["https://blank.example"].Reason)
	assert.Equal(t, OutcomeDuplicate, byURL["https://existing.example"].Outcome)
	assert.NoError(t, byURL["https://existing.example"].Err)
	assert.Equal(t, ReasonGeneration, byURL["https://bad-output.example"].Reason)
	assert.Equal(t, StateFailed, byURL["https://bad-output.example"].State)

	tool, err := f.gw.FindToolBySlug(ctx, "graderank")
	require.NoError(t, err)
	assert.Equal(t, "https://graderank.ai", tool.WebsiteURL)
	assert.Equal(t, types.Tags{"seo", "ranking"}, tool.Tags)
	assert.Equal(t, enums.ToolStatusApproved, tool.Status)
	assert.Equal(t, enums.ToolSourceScraped, tool.Source)
	assert.False(t, tool.IsFeatured)
	assert.Zero(t, tool.TotalRatingSum)
	assert.Zero(t, tool.NumberOfRatings)
	assert.Equal(t, types.Analytics{}, tool.Analytics)
	assert.Equal(t, "blue", tool.Visual.Color)

	owner, err := f.gw.FindUserByEmail(ctx, "contact@graderank.ai-tools.com")
	require.NoError(t, err)
	require.NotNil(t, tool.SubmittedBy)
	assert.Equal(t, owner.ID, *tool.SubmittedBy)
	assert.Equal(t, enums.UserSourceScraped, owner.Source)

	mirror, err := f.gw.FindToolBySlug(ctx, "graderank-1")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, *mirror.SubmittedBy)

	log := f.log.String()
	assert.Equal(t, 7, strings.Count(log, "NEW ENTRY"))
	assert.Equal(t, 3, strings.Count(log, "--- TOOL DOCUMENT ---"))
	assert.Contains(t, log, "Skipped: not relevant (https://casino.example)")

	assert.Contains(t, summary.String(), "processed=7 succeeded=2 skipped=4 duplicates=1 failed=1")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	f := newFixture(t, true, []string{"https://graderank.ai"})
	ctx := context.Background()

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, OutcomeDryRun, res.Outcome)
	assert.True(t, res.DryRun)
	assert.Equal(t, "graderank", res.Slug)
	assert.Equal(t, 1, summary.Succeeded)

	_, err = f.gw.FindToolByWebsiteURL(ctx, "https://graderank.ai")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.gw.FindUserByEmail(ctx, "contact@graderank.ai-tools.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Contains(t, f.log.String(), "--- USER DOCUMENT ---")
	assert.Contains(t, f.log.String(), `"slug": "graderank"`)
}

func TestRunDryRunKeepsSlugsUniqueWithinRun(t *testing.T) {
	f := newFixture(t, true, []string{"https://graderank.ai", "https://graderank.io"})

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, OutcomeDryRun, summary.Results[0].Outcome)
	assert.Equal(t, OutcomeDryRun, summary.Results[1].Outcome)
	assert.Equal(t, "graderank", summary.Results[0].Slug)
	assert.Equal(t, "graderank-1", summary.Results[1].Slug)
}

func TestRunClassifierFailureSkips(t *testing.T) {
	f := newFixture(t, false, []string{"https://graderank.ai"})
	f.backend.classifyErr = errors.New("quota exceeded")

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, StateSkipped, summary.Results[0].State)
	assert.Equal(t, ReasonNotRelevant, summary.Results[0].Reason)
	assert.Equal(t, 0, summary.Failed)
}

func TestRunHarvestFailure(t *testing.T) {
	f := newFixture(t, false, nil)
	f.harvester.err = errors.New("chrome did not start")

	summary, err := f.orch.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, summary.Processed)
	assert.Zero(t, f.backend.calls)
}

func TestRunStopsOnCancellation(t *testing.T) {
	f := newFixture(t, true, []string{"https://graderank.ai", "https://graderank.io", "https://casino.example"})
	ctx, cancel := context.WithCancel(context.Background())
	f.orch.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
}

// slugRaceGateway loses the slug race on the first inserts.
type slugRaceGateway struct {
	store.Gateway
	losses int
	tried  []string
}

func (g *slugRaceGateway) InsertTool(ctx context.Context, tool *models.Tool) error {
	g.tried = append(g.tried, tool.Slug)
	if g.losses > 0 {
		g.losses--
		return &store.ConflictError{Field: store.FieldSlug, Err: errors.New("UNIQUE constraint failed: tools.slug")}
	}
	return g.Gateway.InsertTool(ctx, tool)
}

func newRacePersister(t *testing.T, losses int) (*Persister, *slugRaceGateway) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	gw, _ := storetest.OpenSQLite(t)
	race := &slugRaceGateway{Gateway: gw, losses: losses}
	p, err := NewPersister(PersisterParams{Store: race, Owners: owners.NewResolver(gw, fastArgon, logg), Logger: logg})
	require.NoError(t, err)
	return p, race
}

func normalizedTool(t *testing.T, name, url string) *models.Tool {
	t.Helper()
	norm, err := normalize.New("")
	require.NoError(t, err)
	rec, err := norm.Normalize(candidateRecord(name, url))
	require.NoError(t, err)
	return rec
}

func TestPersisterRetriesSlugConflicts(t *testing.T) {
	p, race := newRacePersister(t, 2)

	res := p.Persist(context.Background(), normalizedTool(t, "GradeRank", "https://graderank.ai"))
	require.Equal(t, StatePersisted, res.State, res.String())
	assert.Equal(t, "graderank-2", res.Slug)
	assert.Equal(t, []string{"graderank", "graderank-1", "graderank-2"}, race.tried)
}

func TestPersisterGivesUpAfterMaxRetries(t *testing.T) {
	p, race := newRacePersister(t, MaxSlugRetries+1)

	res := p.Persist(context.Background(), normalizedTool(t, "GradeRank", "https://graderank.ai"))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonPersistence, res.Reason)
	assert.ErrorIs(t, res.Err, store.ErrConflict)
	assert.Len(t, race.tried, MaxSlugRetries+1)
}

func TestPersisterFallbackSlug(t *testing.T) {
	p, _ := newRacePersister(t, 0)

	res := p.Persist(context.Background(), normalizedTool(t, "!!!", "https://bang.example"))
	require.Equal(t, StatePersisted, res.State, res.String())
	assert.Equal(t, "tool-1", res.Slug)
}

func candidateRecord(name, url string) candidate.Record {
	return candidate.Record{Name: name, WebsiteURL: url}
}
