package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

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

func TestToolDocRoundTrip(t *testing.T) {
	owner := uuid.New()
	tool := scrapedTool("GradeRank", "graderank", "https://graderank.ai", owner)
	tool.ID = uuid.New()
	tool.Tags = nil
	tool.Analytics = types.Analytics{TotalViews: 3}

	doc := newToolDoc(tool)
	assert.Equal(t, tool.ID, doc.ID.UUID)
	require.NotNil(t, doc.SubmittedBy)
	assert.Equal(t, owner, doc.SubmittedBy.UUID)
	assert.NotNil(t, doc.Tags)

	back, err := doc.model()
	require.NoError(t, err)
	assert.Equal(t, tool.ID, back.ID)
	assert.Equal(t, owner, *back.SubmittedBy)
	assert.Equal(t, int64(3), back.Analytics.TotalViews)
	assert.Equal(t, types.Tags{}, back.Tags)
}

func TestToolDocLegacyDefaults(t *testing.T) {
	doc := toolDoc{ID: docID{uuid.New()}, Name: "Legacy", Source: string(enums.ToolSourceScraped)}

	tool, err := doc.model()
	require.NoError(t, err)
	assert.Nil(t, tool.SubmittedBy)
	assert.Equal(t, types.Analytics{}, tool.Analytics)
	assert.Equal(t, types.MediaStats{}, tool.MediaStats)
	assert.Equal(t, types.DefaultVisualType, tool.Visual.Type)
	assert.NotNil(t, tool.Tags)

	_, err = toolDoc{Name: "No id"}.model()
	assert.Error(t, err)
}

func TestToolDocDecodesObjectIDs(t *testing.T) {
	toolOID := primitive.NewObjectID()
	ownerOID := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{
		"_id":         toolOID,
		"name":        "GradeRank",
		"slug":        "graderank",
		"websiteUrl":  "https://graderank.ai",
		"status":      "approved",
		"source":      "scraped",
		"submittedBy": ownerOID,
	})
	require.NoError(t, err)

	var doc toolDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	tool, err := doc.model()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tool.ID)
	require.NotNil(t, tool.SubmittedBy)
	assert.NotEqual(t, tool.ID, *tool.SubmittedBy)

	// Writing the tool back must target the same ObjectId documents.
	out, err := bson.Marshal(newToolDoc(tool))
	require.NoError(t, err)
	var back bson.M
	require.NoError(t, bson.Unmarshal(out, &back))
	assert.Equal(t, toolOID, back["_id"])
	assert.Equal(t, ownerOID, back["submittedBy"])
}

func TestToolDocStringIDs(t *testing.T) {
	id := uuid.New()
	raw, err := bson.Marshal(bson.M{"_id": id.String(), "name": "GradeRank", "submittedBy": ""})
	require.NoError(t, err)

	var doc toolDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	tool, err := doc.model()
	require.NoError(t, err)
	assert.Equal(t, id, tool.ID)
	assert.Nil(t, tool.SubmittedBy)

	out, err := bson.Marshal(newToolDoc(tool))
	require.NoError(t, err)
	var back bson.M
	require.NoError(t, bson.Unmarshal(out, &back))
	assert.Equal(t, id.String(), back["_id"])

	bad, err := bson.Marshal(bson.M{"_id": "507f1f77bcf86cd799439011"})
	require.NoError(t, err)
	assert.Error(t, bson.Unmarshal(bad, &toolDoc{}))
}

func TestUserDocReadsLegacyPasswordField(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{
		"_id":      oid,
		"email":    "admin@seohub.example",
		"password": "$2a$10$legacyhash",
		"role":     "admin",
	})
	require.NoError(t, err)

	var doc userDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	user, err := doc.model()
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$legacyhash", user.PasswordHash)
	assert.Equal(t, enums.UserRoleAdmin, user.Role)

	id, ok := objectIDFromUUID(user.ID)
	require.True(t, ok)
	assert.Equal(t, oid, id)

	_, ok = objectIDFromUUID(uuid.New())
	assert.False(t, ok)

	doc.PasswordHash = "$2a$10$current"
	user, err = doc.model()
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$current", user.PasswordHash)
}

// The integration test needs a disposable mongod.
func TestMongoGatewayIntegration(t *testing.T) {
	uri := os.Getenv("AITOOLS_MONGO_TEST_URI")
	if uri == "" {
		t.Skip("AITOOLS_MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	g, err := OpenMongo(ctx, config.MongoConfig{
		URI:            uri,
		Database:       "aitools_test_" + uuid.NewString()[:8],
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = g.tools.Database().Drop(ctx)
		_ = g.Close(ctx)
	})

	owner := &models.User{CompanyName: "graderank", Email: "contact@graderank.ai-tools.com", PasswordHash: "h", Role: enums.UserRoleUser, Source: enums.UserSourceScraped}
	require.NoError(t, g.InsertUser(ctx, owner))
	err = g.InsertUser(ctx, &models.User{Email: owner.Email})
	assert.Equal(t, FieldEmail, ConflictField(err))

	require.NoError(t, g.InsertTool(ctx, scrapedTool("GradeRank", "graderank", "https://graderank.ai", owner.ID)))
	require.NoError(t, g.InsertTool(ctx, scrapedTool("Legacy", "", "https://legacy.example", owner.ID)))
	require.NoError(t, g.InsertTool(ctx, scrapedTool("Legacy2", "", "https://legacy2.example", owner.ID)))

	err = g.InsertTool(ctx, scrapedTool("Dup", "graderank", "https://dup.example", owner.ID))
	assert.Equal(t, FieldSlug, ConflictField(err))
	err = g.InsertTool(ctx, scrapedTool("Dup", "dup", "https://graderank.ai", owner.ID))
	assert.Equal(t, FieldWebsiteURL, ConflictField(err))

	found, err := g.FindToolBySlug(ctx, "graderank")
	require.NoError(t, err)
	assert.Equal(t, "https://graderank.ai", found.WebsiteURL)

	known, err := g.KnownWebsiteURLs(ctx)
	require.NoError(t, err)
	assert.Len(t, known, 3)

	missing, err := g.ListToolsMissingSlug(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	_, err = g.tools.InsertOne(ctx, map[string]any{"_id": uuid.NewString(), "name": "Bare", "websiteUrl": "https://bare.example", "source": "scraped", "status": "approved"})
	require.NoError(t, err)
	repair, err := g.BackfillToolCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repair.Ratings)
	assert.Equal(t, int64(1), repair.Analytics)

	n, err := g.AssignMissingOwners(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	approved, err := g.ListApprovedTools(ctx)
	require.NoError(t, err)
	assert.Len(t, approved, 4)

	legacyOID := primitive.NewObjectID()
	_, err = g.tools.InsertOne(ctx, bson.M{"_id": legacyOID, "name": "Node era", "websiteUrl": "https://node.example", "source": "submitted", "status": "pending"})
	require.NoError(t, err)
	pending, err := g.ListToolsByStatus(ctx, enums.ToolStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	status := enums.ToolStatusApproved
	moderated, err := g.ModerateTool(ctx, pending[0].ID, ToolModeration{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, enums.ToolStatusApproved, moderated.Status)
	assert.Equal(t, pending[0].ID, moderated.ID)

	byID, err := g.FindToolByID(ctx, moderated.ID)
	require.NoError(t, err)
	assert.Equal(t, "Node era", byID.Name)

	_, err = g.ModerateTool(ctx, uuid.New(), ToolModeration{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := g.CatalogStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Approved)
	assert.Equal(t, int64(5), stats.All)
	assert.Equal(t, int64(1), stats.Users)
}
