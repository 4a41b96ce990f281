// Package owners attributes scraped tools to placeholder company users.
package owners

import (
	"context"
	stdErrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/security"
)

const (
	EmailDomain    = "ai-tools.com"
	PasswordLength = 32
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// Store is the slice of store.Gateway the resolver needs.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
}

// EmailFor derives the placeholder email of a company. Names without any
// alphanumeric character map to "unknown".
func EmailFor(companyName string) string {
	local := nonAlnum.ReplaceAllString(strings.ToLower(companyName), "")
	if local == "" {
		local = "unknown"
	}
	return fmt.Sprintf("contact@%s.%s", local, EmailDomain)
}

// Resolver finds or lazily creates the owner of a scraped tool.
type Resolver struct {
	store    Store
	password config.PasswordConfig
	logg     *logger.Logger
}

func NewResolver(st Store, password config.PasswordConfig, logg *logger.Logger) *Resolver {
	return &Resolver{store: st, password: password, logg: logg}
}

// Resolve returns the user owning companyName's tools. An existing user is
// looked up by email first. Otherwise a placeholder is built and, when
// persist is set, inserted. created reports whether the user is new.
func (r *Resolver) Resolve(ctx context.Context, companyName string, persist bool) (user *models.User, created bool, err error) {
	name := strings.TrimSpace(companyName)
	if name == "" {
		return nil, false, fmt.Errorf("owner company name is required")
	}
	email := EmailFor(name)

	existing, err := r.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		r.logg.Debug(r.logg.WithField(ctx, "email", email), "found existing owner")
		return existing, false, nil
	case !stdErrors.Is(err, store.ErrNotFound):
		return nil, false, fmt.Errorf("looking up owner %s: %w", email, err)
	}

	user, err = r.placeholder(name, email)
	if err != nil {
		return nil, false, err
	}
	if !persist {
		return user, true, nil
	}

	if err := r.store.InsertUser(ctx, user); err != nil {
		if !stdErrors.Is(err, store.ErrConflict) {
			return nil, false, fmt.Errorf("inserting owner %s: %w", email, err)
		}
		// Another run created the owner between lookup and insert.
		existing, findErr := r.store.FindUserByEmail(ctx, email)
		if findErr != nil {
			return nil, false, fmt.Errorf("reloading owner %s: %w", email, findErr)
		}
		return existing, false, nil
	}
	r.logg.Info(r.logg.WithField(ctx, "email", email), "created placeholder owner")
	return user, true, nil
}

func (r *Resolver) placeholder(name, email string) (*models.User, error) {
	password, err := security.GenerateTempPassword(PasswordLength)
	if err != nil {
		return nil, fmt.Errorf("generating owner password: %w", err)
	}
	hash, err := security.HashPassword(password, r.password)
	if err != nil {
		return nil, fmt.Errorf("hashing owner password: %w", err)
	}
	return &models.User{
		ID:           uuid.New(),
		CompanyName:  name,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
		Source:       enums.UserSourceScraped,
	}, nil
}
