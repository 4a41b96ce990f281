package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/internal/store/storetest"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

func mustInsertUser(t *testing.T, g store.Gateway, email string, role enums.UserRole, createdAt time.Time) *models.User {
	t.Helper()
	user := &models.User{
		CompanyName:  strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Source:       enums.UserSourceScraped,
		CreatedAt:    createdAt,
	}
	require.NoError(t, g.InsertUser(context.Background(), user))
	return user
}

func scrapedTool(name, slug, website string, owner uuid.UUID) *models.Tool {
	return &models.Tool{
		Name:        name,
		Tagline:     "tagline",
		Description: "description",
		Slug:        slug,
		WebsiteURL:  website,
		Tags:        types.Tags{},
		Status:      enums.ToolStatusApproved,
		Source:      enums.ToolSourceScraped,
		SubmittedBy: &owner,
		Visual:      types.Visual{}.WithDefaults(),
	}
}

func TestSQLGatewayInsertAndFindTool(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()
	owner := mustInsertUser(t, g, "contact@graderank.ai-tools.com", enums.UserRoleUser, time.Now())

	tool := scrapedTool("GradeRank", "graderank", "https://graderank.ai", owner.ID)
	tool.Tags = types.Tags{"seo", "ranking"}
	require.NoError(t, g.InsertTool(ctx, tool))
	require.NotEqual(t, uuid.Nil, tool.ID)

	found, err := g.FindToolByWebsiteURL(ctx, "https://graderank.ai")
	require.NoError(t, err)
	assert.Equal(t, "GradeRank", found.Name)
	assert.Equal(t, types.Tags{"seo", "ranking"}, found.Tags)
	assert.Equal(t, owner.ID, *found.SubmittedBy)
	assert.Zero(t, found.TotalRatingSum)
	assert.Zero(t, found.NumberOfRatings)
	assert.Zero(t, found.AverageRating)
	assert.Equal(t, types.Analytics{}, found.Analytics)
	assert.Equal(t, types.CommentStats{}, found.CommentStats)
	assert.Equal(t, types.MediaStats{}, found.MediaStats)
	assert.Equal(t, types.DefaultVisualColor, found.Visual.Color)

	bySlug, err := g.FindToolBySlug(ctx, "graderank")
	require.NoError(t, err)
	assert.Equal(t, tool.ID, bySlug.ID)

	byID, err := g.FindToolByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://graderank.ai", byID.WebsiteURL)

	_, err = g.FindToolByWebsiteURL(ctx, "https://missing.example")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLGatewayEmptyTagsRoundTrip(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()
	owner := mustInsertUser(t, g, "o@x.com", enums.UserRoleUser, time.Now())

	tool := scrapedTool("Bare", "bare", "https://bare.example", owner.ID)
	tool.Tags = nil
	require.NoError(t, g.InsertTool(ctx, tool))

	found, err := g.FindToolByID(ctx, tool.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Tags)
	assert.Empty(t, found.Tags)
}

func TestSQLGatewayRejectsOwnerlessScrapedTool(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	tool := scrapedTool("Orphan", "orphan", "https://orphan.example", uuid.Nil)
	tool.SubmittedBy = nil

	err := g.InsertTool(context.Background(), tool)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSQLGatewayMapsUniqueViolations(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()
	owner := mustInsertUser(t, g, "o@x.com", enums.UserRoleUser, time.Now())

	require.NoError(t, g.InsertTool(ctx, scrapedTool("GradeRank", "graderank", "https://graderank.ai", owner.ID)))

	err := g.InsertTool(ctx, scrapedTool("GradeRank", "graderank", "https://other.example", owner.ID))
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, store.FieldSlug, store.ConflictField(err))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePersistenceConflict))

	err = g.InsertTool(ctx, scrapedTool("GradeRank", "graderank-1", "https://graderank.ai", owner.ID))
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, store.FieldWebsiteURL, store.ConflictField(err))

	err = g.InsertUser(ctx, &models.User{CompanyName: "dup", Email: "o@x.com", PasswordHash: "h", Role: enums.UserRoleUser, Source: enums.UserSourceScraped})
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, store.FieldEmail, store.ConflictField(err))
}

func TestSQLGatewaySlugsAndKnownURLs(t *testing.T) {
	g, conn := storetest.OpenSQLite(t)
	ctx := context.Background()
	owner := mustInsertUser(t, g, "o@x.com", enums.UserRoleUser, time.Now())

	require.NoError(t, g.InsertTool(ctx, scrapedTool("GradeRank", "graderank", "https://graderank.ai", owner.ID)))
	legacy := scrapedTool("Legacy Tool", "", "https://legacy.example", owner.ID)
	require.NoError(t, g.InsertTool(ctx, legacy))
	// Two legacy rows may share the empty slug.
	require.NoError(t, g.InsertTool(ctx, scrapedTool("Legacy Two", "", "https://legacy2.example", owner.ID)))

	exists, err := g.ToolSlugExists(ctx, "graderank")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = g.ToolSlugExists(ctx, "graderank-1")
	require.NoError(t, err)
	assert.False(t, exists)

	known, err := g.KnownWebsiteURLs(ctx)
	require.NoError(t, err)
	assert.Len(t, known, 3)
	assert.Contains(t, known, "https://legacy.example")

	missing, err := g.ListToolsMissingSlug(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	require.NoError(t, g.SetToolSlug(ctx, legacy.ID, "legacy-tool"))
	var slug string
	require.NoError(t, conn.Raw("SELECT slug FROM tools WHERE id = ?", legacy.ID.String()).Scan(&slug).Error)
	assert.Equal(t, "legacy-tool", slug)

	err = g.SetToolSlug(ctx, legacy.ID, "graderank")
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.ErrorIs(t, g.SetToolSlug(ctx, uuid.New(), "ghost"), store.ErrNotFound)
}

func TestSQLGatewayListApprovedOrder(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()
	owner := mustInsertUser(t, g, "o@x.com", enums.UserRoleUser, time.Now())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	insert := func(name string, featured bool, status enums.ToolStatus, age time.Duration) {
		tool := scrapedTool(name, strings.ToLower(name), "https://"+strings.ToLower(name)+".example", owner.ID)
		tool.IsFeatured = featured
		tool.Status = status
		tool.CreatedAt = base.Add(-age)
		require.NoError(t, g.InsertTool(ctx, tool))
	}
	insert("OldPlain", false, enums.ToolStatusApproved, 48*time.Hour)
	insert("NewPlain", false, enums.ToolStatusApproved, time.Hour)
	insert("OldFeatured", true, enums.ToolStatusApproved, 72*time.Hour)
	insert("Pending", true, enums.ToolStatusPending, 0)

	list, err := g.ListApprovedTools(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"OldFeatured", "NewPlain", "OldPlain"}, names)
}

func TestSQLGatewayRepairsLegacyRows(t *testing.T) {
	g, conn := storetest.OpenSQLite(t)
	ctx := context.Background()
	legacyID := uuid.New()
	require.NoError(t, conn.Exec(`INSERT INTO tools
		(id, name, tagline, description, website_url, status, source, submitted_by,
		 total_rating_sum, number_of_ratings, average_rating, analytics, comment_stats, media_stats, visual, created_at, updated_at)
		VALUES (?, 'Legacy', 't', 'd', 'https://legacy.example', 'approved', 'scraped', NULL,
		 NULL, NULL, NULL, NULL, NULL, NULL, '{}', ?, ?)`, legacyID.String(), time.Now(), time.Now()).Error)

	repair, err := g.BackfillToolCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repair.Ratings)
	assert.Equal(t, int64(1), repair.Analytics)
	assert.Equal(t, int64(1), repair.CommentStats)
	assert.Equal(t, int64(1), repair.MediaStats)
	assert.Equal(t, int64(4), repair.Total())

	again, err := g.BackfillToolCounters(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Total())

	admin := mustInsertUser(t, g, "admin@x.com", enums.UserRoleAdmin, time.Now().Add(-time.Hour))
	n, err := g.AssignMissingOwners(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	tool, err := g.FindToolByID(ctx, legacyID)
	require.NoError(t, err)
	assert.Zero(t, tool.TotalRatingSum)
	assert.Equal(t, types.Analytics{}, tool.Analytics)
	require.NotNil(t, tool.SubmittedBy)
	assert.Equal(t, admin.ID, *tool.SubmittedBy)
}

func TestSQLGatewayUserLookups(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()

	_, err := g.FindAnyUser(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	now := time.Now()
	first := mustInsertUser(t, g, "first@x.com", enums.UserRoleUser, now.Add(-2*time.Hour))
	admin := mustInsertUser(t, g, "admin@x.com", enums.UserRoleAdmin, now.Add(-time.Hour))

	got, err := g.FindUserByRole(ctx, enums.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	got, err = g.FindAnyUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = g.FindUserByEmail(ctx, "first@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = g.FindUserByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@x.com", got.Email)

	_, err = g.FindUserByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, g.Ping(ctx))
}

func TestSQLGatewayFindUserByEmailIgnoresCase(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()

	admin := mustInsertUser(t, g, "Admin@SEOHub.example", enums.UserRoleAdmin, time.Now())

	got, err := g.FindUserByEmail(ctx, "  admin@seohub.EXAMPLE ")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = g.FindUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLGatewayModerateTool(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()
	owner := mustInsertUser(t, g, "contact@graderank.ai-tools.com", enums.UserRoleUser, time.Now())

	tool := scrapedTool("GradeRank", "graderank", "https://graderank.ai", owner.ID)
	tool.Status = enums.ToolStatusPending
	require.NoError(t, g.InsertTool(ctx, tool))

	pending, err := g.ListToolsByStatus(ctx, enums.ToolStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved := enums.ToolStatusApproved
	featured := true
	updated, err := g.ModerateTool(ctx, tool.ID, store.ToolModeration{Status: &approved, IsFeatured: &featured})
	require.NoError(t, err)
	assert.Equal(t, enums.ToolStatusApproved, updated.Status)
	assert.True(t, updated.IsFeatured)
	assert.Equal(t, "graderank", updated.Slug)

	listed, err := g.ListApprovedTools(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	pending, err = g.ListToolsByStatus(ctx, enums.ToolStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	other := scrapedTool("Copy AI", "copy-ai", "https://copy.ai", owner.ID)
	other.Status = enums.ToolStatusRejected
	require.NoError(t, g.InsertTool(ctx, other))
	stats, err := g.CatalogStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.CatalogStats{Approved: 1, Rejected: 1, Featured: 1, All: 2, Users: 1}, stats)

	notFeatured := false
	updated, err = g.ModerateTool(ctx, tool.ID, store.ToolModeration{IsFeatured: &notFeatured})
	require.NoError(t, err)
	assert.False(t, updated.IsFeatured)
	assert.Equal(t, enums.ToolStatusApproved, updated.Status)
}

func TestSQLGatewayModerateToolRejects(t *testing.T) {
	g, _ := storetest.OpenSQLite(t)
	ctx := context.Background()

	_, err := g.ModerateTool(ctx, uuid.New(), store.ToolModeration{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bogus := enums.ToolStatus("archived")
	_, err = g.ModerateTool(ctx, uuid.New(), store.ToolModeration{Status: &bogus})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rejected := enums.ToolStatusRejected
	_, err = g.ModerateTool(ctx, uuid.New(), store.ToolModeration{Status: &rejected})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
