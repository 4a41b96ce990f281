package tools

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

// Repository exposes catalog tool persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts tool as-is; unique violations surface from the driver.
func (r *Repository) Create(ctx context.Context, tool *models.Tool) error {
	return r.db.WithContext(ctx).Create(tool).Error
}

func (r *Repository) FindByWebsiteURL(ctx context.Context, websiteURL string) (*models.Tool, error) {
	var tool models.Tool
	if err := r.db.WithContext(ctx).Where("website_url = ?", websiteURL).First(&tool).Error; err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tool, error) {
	var tool models.Tool
	if err := r.db.WithContext(ctx).First(&tool, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Tool, error) {
	var tool models.Tool
	if err := r.db.WithContext(ctx).Where("slug = ? AND slug <> ''", slug).First(&tool).Error; err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("slug = ?", slug).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListWebsiteURLs returns every stored website URL.
func (r *Repository) ListWebsiteURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := r.db.WithContext(ctx).Model(&models.Tool{}).Pluck("website_url", &urls).Error; err != nil {
		return nil, err
	}
	return urls, nil
}

// ListByStatus returns tools in catalog order: featured first, newest first.
func (r *Repository) ListByStatus(ctx context.Context, status enums.ToolStatus) ([]models.Tool, error) {
	var out []models.Tool
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("is_featured DESC").
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ListMissingSlug(ctx context.Context) ([]models.Tool, error) {
	var out []models.Tool
	if err := r.db.WithContext(ctx).
		Where("slug = '' OR slug IS NULL").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("id = ?", id).
		UpdateColumn("slug", slug)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByStatus returns the number of tools per status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.ToolStatus]int64, error) {
	var rows []struct {
		Status enums.ToolStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.ToolStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *Repository) CountFeatured(ctx context.Context, status enums.ToolStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("status = ? AND is_featured = ?", status, true).
		Count(&count).Error
	return count, err
}

// UpdateColumns sets columns on one tool and bumps updated_at.
func (r *Repository) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("id = ?", id).
		Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CounterRepair reports how many rows each backfill statement touched.
type CounterRepair struct {
	Ratings      int64
	Analytics    int64
	CommentStats int64
	MediaStats   int64
}

// BackfillCounters replaces NULL counters with zero values. Every statement
// runs even when an earlier one fails; errors are combined.
func (r *Repository) BackfillCounters(ctx context.Context) (CounterRepair, error) {
	var out CounterRepair
	var errs error
	db := r.db.WithContext(ctx).Model(&models.Tool{})

	res := db.Session(&gorm.Session{}).
		Where("total_rating_sum IS NULL OR number_of_ratings IS NULL OR average_rating IS NULL").
		UpdateColumns(map[string]any{
			"total_rating_sum":  gorm.Expr("COALESCE(total_rating_sum, 0)"),
			"number_of_ratings": gorm.Expr("COALESCE(number_of_ratings, 0)"),
			"average_rating":    gorm.Expr("COALESCE(average_rating, 0)"),
		})
	out.Ratings, errs = res.RowsAffected, multierr.Append(errs, res.Error)

	res = db.Session(&gorm.Session{}).Where("analytics IS NULL").UpdateColumn("analytics", types.Analytics{})
	out.Analytics, errs = res.RowsAffected, multierr.Append(errs, res.Error)

	res = db.Session(&gorm.Session{}).Where("comment_stats IS NULL").UpdateColumn("comment_stats", types.CommentStats{})
	out.CommentStats, errs = res.RowsAffected, multierr.Append(errs, res.Error)

	res = db.Session(&gorm.Session{}).Where("media_stats IS NULL").UpdateColumn("media_stats", types.MediaStats{})
	out.MediaStats, errs = res.RowsAffected, multierr.Append(errs, res.Error)

	return out, errs
}

// AssignOwner attributes every ownerless scraped tool to ownerID.
func (r *Repository) AssignOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("source = ? AND submitted_by IS NULL", enums.ToolSourceScraped).
		UpdateColumn("submitted_by", ownerID)
	return res.RowsAffected, res.Error
}
