package pipeline

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/aitools-scraper/internal/runlog"
	"github.com/angelmondragon/aitools-scraper/internal/slug"
	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

// MaxSlugRetries bounds how often an insert is retried after losing a slug race.
const MaxSlugRetries = 3

// OwnerResolver finds or creates the placeholder owner of a tool.
type OwnerResolver interface {
	Resolve(ctx context.Context, companyName string, persist bool) (*models.User, bool, error)
}

type PersisterParams struct {
	Store  store.Gateway
	Owners OwnerResolver
	RunLog *runlog.Writer
	DryRun bool
	Logger *logger.Logger
}

// Persister writes normalized tools: owner, dedup by websiteUrl, unique slug,
// insert and run log. It is shared by the scraper and the file importer.
type Persister struct {
	store  store.Gateway
	owners OwnerResolver
	runlog *runlog.Writer
	dryRun bool
	logg   *logger.Logger

	// reserved holds slugs handed out in dry-run mode, where nothing is
	// written and the store alone cannot see them.
	mu       sync.Mutex
	reserved map[string]struct{}
}

func NewPersister(p PersisterParams) (*Persister, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if p.Owners == nil {
		return nil, fmt.Errorf("owner resolver required")
	}
	rl := p.RunLog
	if rl == nil {
		rl = runlog.Discard()
	}
	return &Persister{
		store:    p.Store,
		owners:   p.Owners,
		runlog:   rl,
		dryRun:   p.DryRun,
		logg:     p.Logger,
		reserved: map[string]struct{}{},
	}, nil
}

func (p *Persister) DryRun() bool { return p.dryRun }

// Persist never returns an error; failures are reported on the Result.
func (p *Persister) Persist(ctx context.Context, tool *models.Tool) Result {
	res := Result{URL: tool.WebsiteURL, ToolName: tool.Name, State: StateNormalized, DryRun: p.dryRun}
	ctx = p.logg.WithFields(ctx, map[string]any{"tool_name": tool.Name, "dry_run": p.dryRun})

	owner, _, err := p.owners.Resolve(ctx, tool.Name, !p.dryRun)
	if err != nil {
		return p.fail(ctx, res, ReasonOwner, nil, tool, err)
	}
	tool.SubmittedBy = &owner.ID

	if _, err := p.store.FindToolByWebsiteURL(ctx, tool.WebsiteURL); err == nil {
		return p.duplicate(ctx, res, owner, tool)
	} else if !stdErrors.Is(err, store.ErrNotFound) {
		return p.fail(ctx, res, ReasonPersistence, owner, tool, err)
	}

	base, start := tool.Slug, 0
	if base == "" {
		base, start = slug.FallbackBase, 1
	}
	for attempt := 0; ; attempt++ {
		candidate, n, err := slug.Unique(ctx, base, start, p.slugTaken)
		if err != nil {
			return p.fail(ctx, res, ReasonSlug, owner, tool, err)
		}
		tool.Slug = candidate
		if p.dryRun {
			p.reserve(candidate)
			break
		}

		err = p.store.InsertTool(ctx, tool)
		if err == nil {
			break
		}
		switch store.ConflictField(err) {
		case store.FieldWebsiteURL:
			return p.duplicate(ctx, res, owner, tool)
		case store.FieldSlug:
			if attempt < MaxSlugRetries {
				p.logg.Warn(p.logg.WithField(ctx, "slug", candidate), "slug taken on insert, retrying with next suffix")
				start = n + 1
				continue
			}
		}
		return p.fail(ctx, res, ReasonPersistence, owner, tool, err)
	}

	res.State = StatePersisted
	res.Slug = tool.Slug
	res.Outcome = OutcomePersisted
	if p.dryRun {
		res.Outcome = OutcomeDryRun
	}
	p.record(ctx, runlog.Entry{User: owner, Tool: tool})
	p.logg.Info(p.logg.WithField(ctx, "slug", tool.Slug), "tool persisted")
	return res
}

func (p *Persister) slugTaken(ctx context.Context, candidate string) (bool, error) {
	p.mu.Lock()
	_, ok := p.reserved[candidate]
	p.mu.Unlock()
	if ok {
		return true, nil
	}
	return p.store.ToolSlugExists(ctx, candidate)
}

func (p *Persister) reserve(candidate string) {
	p.mu.Lock()
	p.reserved[candidate] = struct{}{}
	p.mu.Unlock()
}

func (p *Persister) duplicate(ctx context.Context, res Result, owner *models.User, tool *models.Tool) Result {
	res.State = StateSkipped
	res.Outcome = OutcomeDuplicate
	res.Reason = ReasonDuplicate
	p.record(ctx, runlog.Entry{User: owner, Tool: tool, Outcome: res.String()})
	p.logg.Info(ctx, "tool already exists, skipping")
	return res
}

func (p *Persister) fail(ctx context.Context, res Result, reason string, owner *models.User, tool *models.Tool, err error) Result {
	res.State = StateFailed
	res.Outcome = OutcomeFailed
	res.Reason = reason
	res.Err = err
	p.record(ctx, runlog.Entry{User: owner, Tool: tool, Outcome: res.String()})
	p.logg.Error(p.logg.WithFields(ctx, map[string]any{"stage": "persist", "reason": reason}), "persisting tool failed", err)
	return res
}

// record writes a run log entry. The run log is best-effort.
func (p *Persister) record(ctx context.Context, entry runlog.Entry) {
	if err := p.runlog.Write(entry); err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "run log write failed")
	}
}
