package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aitools-scraper/pkg/enums"
)

// User owns catalog tools. Scraped tools are attributed to placeholder users.
type User struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"_id"`
	CompanyName    string           `gorm:"column:company_name;not null" json:"companyName"`
	Email          string           `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash   string           `gorm:"column:password_hash;not null" json:"-"`
	Role           enums.UserRole   `gorm:"column:role;not null;default:'user'" json:"role"`
	Source         enums.UserSource `gorm:"column:source;not null;default:'listed'" json:"source"`
	CompanyLogoURL string           `gorm:"column:company_logo_url;not null;default:''" json:"companyLogoUrl"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
