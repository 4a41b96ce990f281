package store

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

const (
	toolsCollection = "tools"
	usersCollection = "users"

	mongoSlugIndex       = "tools_slug_key"
	mongoWebsiteURLIndex = "tools_website_url_key"
	mongoEmailIndex      = "users_email_key"
)

type toolDoc struct {
	ID              docID               `bson:"_id"`
	Name            string              `bson:"name"`
	Tagline         string              `bson:"tagline"`
	Description     string              `bson:"description"`
	Slug            string              `bson:"slug"`
	WebsiteURL      string              `bson:"websiteUrl"`
	Tags            []string            `bson:"tags"`
	AppStoreURL     string              `bson:"appStoreUrl"`
	PlayStoreURL    string              `bson:"playStoreUrl"`
	LogoURL         string              `bson:"logoUrl"`
	Status          string              `bson:"status"`
	IsFeatured      bool                `bson:"isFeatured"`
	Source          string              `bson:"source"`
	SubmittedBy     *docID              `bson:"submittedBy,omitempty"`
	TotalRatingSum  float64             `bson:"totalRatingSum"`
	NumberOfRatings int64               `bson:"numberOfRatings"`
	AverageRating   float64             `bson:"averageRating"`
	Analytics       *types.Analytics    `bson:"analytics"`
	CommentStats    *types.CommentStats `bson:"commentStats"`
	MediaStats      *types.MediaStats   `bson:"mediaStats"`
	Visual          types.Visual        `bson:"visual"`
	CreatedAt       time.Time           `bson:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt"`
}

type userDoc struct {
	ID             docID     `bson:"_id"`
	CompanyName    string    `bson:"companyName"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"passwordHash"`
	LegacyPassword string    `bson:"password,omitempty"`
	Role           string    `bson:"role"`
	Source         string    `bson:"source"`
	CompanyLogoURL string    `bson:"companyLogoUrl"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func newToolDoc(t *models.Tool) toolDoc {
	doc := toolDoc{
		ID:              docID{t.ID},
		Name:            t.Name,
		Tagline:         t.Tagline,
		Description:     t.Description,
		Slug:            t.Slug,
		WebsiteURL:      t.WebsiteURL,
		Tags:            []string(t.Tags),
		AppStoreURL:     t.AppStoreURL,
		PlayStoreURL:    t.PlayStoreURL,
		LogoURL:         t.LogoURL,
		Status:          string(t.Status),
		IsFeatured:      t.IsFeatured,
		Source:          string(t.Source),
		TotalRatingSum:  t.TotalRatingSum,
		NumberOfRatings: t.NumberOfRatings,
		AverageRating:   t.AverageRating,
		Analytics:       &t.Analytics,
		CommentStats:    &t.CommentStats,
		MediaStats:      &t.MediaStats,
		Visual:          t.Visual.WithDefaults(),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if t.SubmittedBy != nil && *t.SubmittedBy != uuid.Nil {
		doc.SubmittedBy = &docID{*t.SubmittedBy}
	}
	return doc
}

func (d toolDoc) model() (*models.Tool, error) {
	if d.ID.UUID == uuid.Nil {
		return nil, fmt.Errorf("tool %q: missing _id", d.Name)
	}
	tool := &models.Tool{
		ID:              d.ID.UUID,
		Name:            d.Name,
		Tagline:         d.Tagline,
		Description:     d.Description,
		Slug:            d.Slug,
		WebsiteURL:      d.WebsiteURL,
		Tags:            types.Tags(d.Tags),
		AppStoreURL:     d.AppStoreURL,
		PlayStoreURL:    d.PlayStoreURL,
		LogoURL:         d.LogoURL,
		Status:          enums.ToolStatus(d.Status),
		IsFeatured:      d.IsFeatured,
		Source:          enums.ToolSource(d.Source),
		TotalRatingSum:  d.TotalRatingSum,
		NumberOfRatings: d.NumberOfRatings,
		AverageRating:   d.AverageRating,
		Visual:          d.Visual.WithDefaults(),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if tool.Tags == nil {
		tool.Tags = types.Tags{}
	}
	if d.Analytics != nil {
		tool.Analytics = *d.Analytics
	}
	if d.CommentStats != nil {
		tool.CommentStats = *d.CommentStats
	}
	if d.MediaStats != nil {
		tool.MediaStats = *d.MediaStats
	}
	if d.SubmittedBy != nil && d.SubmittedBy.UUID != uuid.Nil {
		owner := d.SubmittedBy.UUID
		tool.SubmittedBy = &owner
	}
	return tool, nil
}

func newUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:             docID{u.ID},
		CompanyName:    u.CompanyName,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		Source:         string(u.Source),
		CompanyLogoURL: u.CompanyLogoURL,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d userDoc) model() (*models.User, error) {
	if d.ID.UUID == uuid.Nil {
		return nil, fmt.Errorf("user %q: missing _id", d.Email)
	}
	hash := d.PasswordHash
	if hash == "" {
		hash = d.LegacyPassword
	}
	return &models.User{
		ID:             d.ID.UUID,
		CompanyName:    d.CompanyName,
		Email:          d.Email,
		PasswordHash:   hash,
		Role:           enums.UserRole(d.Role),
		Source:         enums.UserSource(d.Source),
		CompanyLogoURL: d.CompanyLogoURL,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

// MongoGateway implements Gateway on a MongoDB database holding the tools
// and users collections. Documents use camelCase fields and string UUID ids;
// ObjectId ids left by earlier writers are read through docID.
type MongoGateway struct {
	client       *mongo.Client
	tools        *mongo.Collection
	users        *mongo.Collection
	queryTimeout time.Duration
	now          func() time.Time
}

// OpenMongo connects, pings and ensures the catalog indexes.
func OpenMongo(ctx context.Context, cfg config.MongoConfig) (*MongoGateway, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	g := NewMongoGateway(client, cfg.Database, cfg.QueryTimeout)
	if err := g.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return g, nil
}

func NewMongoGateway(client *mongo.Client, database string, queryTimeout time.Duration) *MongoGateway {
	db := client.Database(database)
	return &MongoGateway{
		client:       client,
		tools:        db.Collection(toolsCollection),
		users:        db.Collection(usersCollection),
		queryTimeout: queryTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the unique keys the gateway relies on. Legacy tools
// may share an empty slug, so the slug index only covers non-empty values.
func (g *MongoGateway) EnsureIndexes(ctx context.Context) error {
	_, err := g.tools.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "websiteUrl", Value: 1}},
			Options: options.Index().SetName(mongoWebsiteURLIndex).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetName(mongoSlugIndex).SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "slug", Value: bson.D{{Key: "$gt", Value: ""}}}}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "isFeatured", Value: -1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("tools_catalog_order_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("creating tool indexes: %w", err)
	}
	_, err = g.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName(mongoEmailIndex).SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	return nil
}

func (g *MongoGateway) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.queryTimeout)
}

// mongoConflict maps a duplicate key error to the violated field.
func mongoConflict(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, mongoSlugIndex):
		return conflict(FieldSlug, err)
	case strings.Contains(msg, mongoWebsiteURLIndex):
		return conflict(FieldWebsiteURL, err)
	case strings.Contains(msg, mongoEmailIndex):
		return conflict(FieldEmail, err)
	}
	return err
}

func (g *MongoGateway) findTool(ctx context.Context, filter bson.D) (*models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	var doc toolDoc
	if err := g.tools.FindOne(ctx, filter).Decode(&doc); err != nil {
		if stdErrors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.model()
}

func (g *MongoGateway) findTools(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]models.Tool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	cur, err := g.tools.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []toolDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Tool, 0, len(docs))
	for _, doc := range docs {
		tool, err := doc.model()
		if err != nil {
			return nil, err
		}
		out = append(out, *tool)
	}
	return out, nil
}

func (g *MongoGateway) FindToolByWebsiteURL(ctx context.Context, websiteURL string) (*models.Tool, error) {
	return g.findTool(ctx, bson.D{{Key: "websiteUrl", Value: websiteURL}})
}

func (g *MongoGateway) FindToolByID(ctx context.Context, id uuid.UUID) (*models.Tool, error) {
	return g.findTool(ctx, bson.D{{Key: "_id", Value: docID{id}}})
}

func (g *MongoGateway) FindToolBySlug(ctx context.Context, slug string) (*models.Tool, error) {
	if slug == "" {
		return nil, ErrNotFound
	}
	return g.findTool(ctx, bson.D{{Key: "slug", Value: slug}})
}

func (g *MongoGateway) ToolSlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	n, err := g.tools.CountDocuments(ctx, bson.D{{Key: "slug", Value: slug}}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *MongoGateway) InsertTool(ctx context.Context, tool *models.Tool) error {
	if err := validateOwnedTool(tool); err != nil {
		return err
	}
	if tool.ID == uuid.Nil {
		tool.ID = uuid.New()
	}
	now := g.now()
	if tool.CreatedAt.IsZero() {
		tool.CreatedAt = now
	}
	tool.UpdatedAt = now

	ctx, cancel := g.ctx(ctx)
	defer cancel()
	_, err := g.tools.InsertOne(ctx, newToolDoc(tool))
	return mongoConflict(err)
}

func (g *MongoGateway) KnownWebsiteURLs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	values, err := g.tools.Distinct(ctx, "websiteUrl", bson.D{})
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			known[s] = struct{}{}
		}
	}
	return known, nil
}

func (g *MongoGateway) ListApprovedTools(ctx context.Context) ([]models.Tool, error) {
	return g.ListToolsByStatus(ctx, enums.ToolStatusApproved)
}

func (g *MongoGateway) ListToolsByStatus(ctx context.Context, status enums.ToolStatus) ([]models.Tool, error) {
	opts := options.Find().SetSort(bson.D{{Key: "isFeatured", Value: -1}, {Key: "createdAt", Value: -1}})
	return g.findTools(ctx, bson.D{{Key: "status", Value: string(status)}}, opts)
}

func (g *MongoGateway) ModerateTool(ctx context.Context, id uuid.UUID, m ToolModeration) (*models.Tool, error) {
	if err := validateModeration(m); err != nil {
		return nil, err
	}
	set := bson.D{{Key: "updatedAt", Value: g.now()}}
	if m.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*m.Status)})
	}
	if m.IsFeatured != nil {
		set = append(set, bson.E{Key: "isFeatured", Value: *m.IsFeatured})
	}

	ctx, cancel := g.ctx(ctx)
	defer cancel()
	var doc toolDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := g.tools.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: docID{id}}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if err != nil {
		if stdErrors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.model()
}

func (g *MongoGateway) CatalogStats(ctx context.Context) (CatalogStats, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	var out CatalogStats
	counts := []struct {
		dst  *int64
		coll *mongo.Collection
		flt  bson.D
	}{
		{&out.Approved, g.tools, bson.D{{Key: "status", Value: string(enums.ToolStatusApproved)}}},
		{&out.Pending, g.tools, bson.D{{Key: "status", Value: string(enums.ToolStatusPending)}}},
		{&out.Rejected, g.tools, bson.D{{Key: "status", Value: string(enums.ToolStatusRejected)}}},
		{&out.Featured, g.tools, bson.D{{Key: "status", Value: string(enums.ToolStatusApproved)}, {Key: "isFeatured", Value: true}}},
		{&out.All, g.tools, bson.D{}},
		{&out.Users, g.users, bson.D{}},
	}
	for _, c := range counts {
		n, err := c.coll.CountDocuments(ctx, c.flt)
		if err != nil {
			return out, err
		}
		*c.dst = n
	}
	return out, nil
}

func (g *MongoGateway) ListToolsMissingSlug(ctx context.Context) ([]models.Tool, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "slug", Value: nil}},
		bson.D{{Key: "slug", Value: ""}},
	}}}
	return g.findTools(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (g *MongoGateway) SetToolSlug(ctx context.Context, id uuid.UUID, slug string) error {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	res, err := g.tools.UpdateByID(ctx, docID{id}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "slug", Value: slug},
		{Key: "updatedAt", Value: g.now()},
	}}})
	if err != nil {
		return mongoConflict(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// BackfillToolCounters zeroes missing or null counters. Every update runs
// even when an earlier one fails; errors are combined.
func (g *MongoGateway) BackfillToolCounters(ctx context.Context) (CounterRepair, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	var out CounterRepair
	var errs error

	ratings := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "totalRatingSum", Value: nil}},
		bson.D{{Key: "numberOfRatings", Value: nil}},
		bson.D{{Key: "averageRating", Value: nil}},
	}}}
	res, err := g.tools.UpdateMany(ctx, ratings, mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "totalRatingSum", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$totalRatingSum", 0}}}},
			{Key: "numberOfRatings", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$numberOfRatings", 0}}}},
			{Key: "averageRating", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$averageRating", 0}}}},
		}}},
	})
	out.Ratings, errs = modified(res), multierr.Append(errs, err)

	res, err = g.tools.UpdateMany(ctx, bson.D{{Key: "analytics", Value: nil}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "analytics", Value: types.Analytics{}}}}})
	out.Analytics, errs = modified(res), multierr.Append(errs, err)

	res, err = g.tools.UpdateMany(ctx, bson.D{{Key: "commentStats", Value: nil}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "commentStats", Value: types.CommentStats{}}}}})
	out.CommentStats, errs = modified(res), multierr.Append(errs, err)

	res, err = g.tools.UpdateMany(ctx, bson.D{{Key: "mediaStats", Value: nil}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "mediaStats", Value: types.MediaStats{}}}}})
	out.MediaStats, errs = modified(res), multierr.Append(errs, err)

	return out, errs
}

func modified(res *mongo.UpdateResult) int64 {
	if res == nil {
		return 0
	}
	return res.ModifiedCount
}

func (g *MongoGateway) AssignMissingOwners(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()
	filter := bson.D{
		{Key: "source", Value: string(enums.ToolSourceScraped)},
		{Key: "submittedBy", Value: bson.D{{Key: "$in", Value: bson.A{nil, ""}}}},
	}
	res, err := g.tools.UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "submittedBy", Value: docID{ownerID}},
		{Key: "updatedAt", Value: g.now()},
	}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (g *MongoGateway) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	ctx, cancel := g.ctx(ctx)
	defer cancel()

	var doc userDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if err := g.users.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if stdErrors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.model()
}

func (g *MongoGateway) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return g.findUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (g *MongoGateway) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return g.findUser(ctx, bson.D{{Key: "_id", Value: docID{id}}})
}

func (g *MongoGateway) FindUserByRole(ctx context.Context, role enums.UserRole) (*models.User, error) {
	return g.findUser(ctx, bson.D{{Key: "role", Value: string(role)}})
}

func (g *MongoGateway) FindAnyUser(ctx context.Context) (*models.User, error) {
	return g.findUser(ctx, bson.D{})
}

func (g *MongoGateway) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := g.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	ctx, cancel := g.ctx(ctx)
	defer cancel()
	_, err := g.users.InsertOne(ctx, newUserDoc(user))
	return mongoConflict(err)
}

func (g *MongoGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx, nil)
}

func (g *MongoGateway) Close(ctx context.Context) error {
	return g.client.Disconnect(ctx)
}
