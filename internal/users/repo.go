// Package users reads and writes the tool owner accounts kept in the
// relational store.
package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts user. A duplicate email surfaces as the driver's unique
// violation.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.TrimSpace(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail matches case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, r.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, r.db.Where("id = ?", id))
}

// FindFirstByRole returns the longest-standing account holding role.
func (r *Repository) FindFirstByRole(ctx context.Context, role enums.UserRole) (*models.User, error) {
	return r.first(ctx, r.db.Where("role = ?", role).Order("created_at ASC"))
}

// FindFirst returns the longest-standing account of any role.
func (r *Repository) FindFirst(ctx context.Context) (*models.User, error) {
	return r.first(ctx, r.db.Order("created_at ASC"))
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// first returns gorm.ErrRecordNotFound untouched so callers can map it.
func (r *Repository) first(ctx context.Context, query *gorm.DB) (*models.User, error) {
	var user models.User
	if err := query.WithContext(ctx).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
