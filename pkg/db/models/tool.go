package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

// Tool is the canonical catalog entry. JSON names follow the public catalog
// documents served from the cache.
type Tool struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"_id"`
	Name            string             `gorm:"column:name;not null" json:"name" validate:"required"`
	Tagline         string             `gorm:"column:tagline;not null" json:"tagline" validate:"required"`
	Description     string             `gorm:"column:description;not null" json:"description" validate:"required"`
	Slug            string             `gorm:"column:slug;not null;default:''" json:"slug"`
	WebsiteURL      string             `gorm:"column:website_url;not null;uniqueIndex" json:"websiteUrl" validate:"required,url"`
	Tags            types.Tags         `gorm:"column:tags;type:text[];not null;default:'{}'" json:"tags"`
	AppStoreURL     string             `gorm:"column:app_store_url;not null;default:''" json:"appStoreUrl"`
	PlayStoreURL    string             `gorm:"column:play_store_url;not null;default:''" json:"playStoreUrl"`
	LogoURL         string             `gorm:"column:logo_url;not null;default:''" json:"logoUrl"`
	Status          enums.ToolStatus   `gorm:"column:status;not null;default:'pending'" json:"status" validate:"required,oneof=pending approved rejected"`
	IsFeatured      bool               `gorm:"column:is_featured;not null;default:false" json:"isFeatured"`
	Source          enums.ToolSource   `gorm:"column:source;not null" json:"source" validate:"required,oneof=scraped submitted"`
	SubmittedBy     *uuid.UUID         `gorm:"column:submitted_by;type:uuid" json:"submittedBy"`
	TotalRatingSum  float64            `gorm:"column:total_rating_sum;not null;default:0" json:"totalRatingSum"`
	NumberOfRatings int64              `gorm:"column:number_of_ratings;not null;default:0" json:"numberOfRatings"`
	AverageRating   float64            `gorm:"column:average_rating;not null;default:0" json:"averageRating"`
	Analytics       types.Analytics    `gorm:"column:analytics;type:jsonb" json:"analytics"`
	CommentStats    types.CommentStats `gorm:"column:comment_stats;type:jsonb" json:"commentStats"`
	MediaStats      types.MediaStats   `gorm:"column:media_stats;type:jsonb" json:"mediaStats"`
	Visual          types.Visual       `gorm:"column:visual;type:jsonb;not null" json:"visual"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Tool) TableName() string { return "tools" }

// BeforeCreate assigns the primary key client side so sqlite and mongo share it.
func (t *Tool) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
