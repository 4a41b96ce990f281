package store

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aitools-scraper/internal/tools"
	"github.com/angelmondragon/aitools-scraper/internal/users"
	"github.com/angelmondragon/aitools-scraper/pkg/db"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
)

// SQLGateway implements Gateway on the gorm tools and users repositories.
type SQLGateway struct {
	client       *db.Client
	tools        *tools.Repository
	users        *users.Repository
	queryTimeout time.Duration
}

func NewSQLGateway(client *db.Client, queryTimeout time.Duration) *SQLGateway {
	return &SQLGateway{
		client:       client,
		tools:        tools.NewRepository(client.DB()),
		users:        users.NewRepository(client.DB()),
		queryTimeout: queryTimeout,
	}
}

func (g *SQLGateway) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.queryTimeout)
}

func notFound(err error) error {
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *SQLGateway) FindToolByWebsiteURL(ctx context.Context, websiteURL string) (*models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	tool, err := g.tools.FindByWebsiteURL(ctx, websiteURL)
	return tool, notFound(err)
}

func (g *SQLGateway) FindToolByID(ctx context.Context, id uuid.UUID) (*models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	tool, err := g.tools.FindByID(ctx, id)
	return tool, notFound(err)
}

func (g *SQLGateway) FindToolBySlug(ctx context.Context, slug string) (*models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	tool, err := g.tools.FindBySlug(ctx, slug)
	return tool, notFound(err)
}

func (g *SQLGateway) ToolSlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	return g.tools.SlugExists(ctx, slug)
}

func (g *SQLGateway) InsertTool(ctx context.Context, tool *models.Tool) error {
	if err := validateOwnedTool(tool); err != nil {
		return err
	}
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	err := g.tools.Create(ctx, tool)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "slug"):
		return conflict(FieldSlug, err)
	case db.IsUniqueViolation(err, "website_url"):
		return conflict(FieldWebsiteURL, err)
	}
	return err
}

func (g *SQLGateway) KnownWebsiteURLs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	urls, err := g.tools.ListWebsiteURLs(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		known[u] = struct{}{}
	}
	return known, nil
}

func (g *SQLGateway) ListApprovedTools(ctx context.Context) ([]models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	return g.tools.ListByStatus(ctx, enums.ToolStatusApproved)
}

func (g *SQLGateway) ListToolsByStatus(ctx context.Context, status enums.ToolStatus) ([]models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	return g.tools.ListByStatus(ctx, status)
}

func (g *SQLGateway) ModerateTool(ctx context.Context, id uuid.UUID, m ToolModeration) (*models.Tool, error) {
	if err := validateModeration(m); err != nil {
		return nil, err
	}
	columns := map[string]any{}
	if m.Status != nil {
		columns["status"] = *m.Status
	}
	if m.IsFeatured != nil {
		columns["is_featured"] = *m.IsFeatured
	}

	ctx, cancel := g.ctx(ctx)
	defer cancel()
	if err := g.tools.UpdateColumns(ctx, id, columns); err != nil {
		return nil, notFound(err)
	}
	tool, err := g.tools.FindByID(ctx, id)
	return tool, notFound(err)
}

func (g *SQLGateway) CatalogStats(ctx context.Context) (CatalogStats, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	byStatus, err := g.tools.CountByStatus(ctx)
	if err != nil {
		return CatalogStats{}, err
	}
	out := CatalogStats{
		Approved: byStatus[enums.ToolStatusApproved],
		Pending:  byStatus[enums.ToolStatusPending],
		Rejected: byStatus[enums.ToolStatusRejected],
	}
	for _, n := range byStatus {
		out.All += n
	}
	if out.Featured, err = g.tools.CountFeatured(ctx, enums.ToolStatusApproved); err != nil {
		return out, err
	}
	if out.Users, err = g.users.Count(ctx); err != nil {
		return out, err
	}
	return out, nil
}

func (g *SQLGateway) ListToolsMissingSlug(ctx context.Context) ([]models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	return g.tools.ListMissingSlug(ctx)
}

func (g *SQLGateway) SetToolSlug(ctx context.Context, id uuid.UUID, slug string) error {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	err := g.tools.UpdateSlug(ctx, id, slug)
	if db.IsUniqueViolation(err, "slug") {
		return conflict(FieldSlug, err)
	}
	return notFound(err)
}

func (g *SQLGateway) BackfillToolCounters(ctx context.Context) (CounterRepair, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	res, err := g.tools.BackfillCounters(ctx)
	return CounterRepair{
		Ratings:      res.Ratings,
		Analytics:    res.Analytics,
		CommentStats: res.CommentStats,
		MediaStats:   res.MediaStats,
	}, err
}

func (g *SQLGateway) AssignMissingOwners(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	return g.tools.AssignOwner(ctx, ownerID)
}

func (g *SQLGateway) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	user, err := g.users.FindByEmail(ctx, email)
	return user, notFound(err)
}

func (g *SQLGateway) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	user, err := g.users.FindByID(ctx, id)
	return user, notFound(err)
}

func (g *SQLGateway) FindUserByRole(ctx context.Context, role enums.UserRole) (*models.User, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	user, err := g.users.FindFirstByRole(ctx, role)
	return user, notFound(err)
}

func (g *SQLGateway) FindAnyUser(ctx context.Context) (*models.User, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	user, err := g.users.FindFirst(ctx)
	return user, notFound(err)
}

func (g *SQLGateway) InsertUser(ctx context.Context, user *models.User) error {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	err := g.users.Create(ctx, user)
	if db.IsUniqueViolation(err, "email") {
		return conflict(FieldEmail, err)
	}
	return err
}

func (g *SQLGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}

func (g *SQLGateway) Close(context.Context) error {
	return g.client.Close()
}
