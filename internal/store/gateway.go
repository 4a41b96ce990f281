// Package store is the persistence gateway for tools and their owners. It
// hides whether the catalog lives in Postgres or MongoDB.
package store

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
)

// ErrNotFound is returned by the Find* methods when nothing matches.
var ErrNotFound = stdErrors.New("store: not found")

// ErrConflict matches every ConflictError with errors.Is.
var ErrConflict = stdErrors.New("store: unique violation")

const (
	FieldSlug       = "slug"
	FieldWebsiteURL = "websiteUrl"
	FieldEmail      = "email"
)

// ConflictError reports a unique key already taken by another record.
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: %s already exists: %v", e.Field, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func conflict(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodePersistenceConflict, &ConflictError{Field: field, Err: err}, field+" already exists").
		WithDetails(map[string]string{"field": field})
}

// ConflictField returns the violated key of a conflict error, or "".
func ConflictField(err error) string {
	var ce *ConflictError
	if stdErrors.As(err, &ce) {
		return ce.Field
	}
	return ""
}

// CounterRepair reports how many tools had each counter group reset to zero.
type CounterRepair struct {
	Ratings      int64
	Analytics    int64
	CommentStats int64
	MediaStats   int64
}

// Total sums every group.
func (c CounterRepair) Total() int64 {
	return c.Ratings + c.Analytics + c.CommentStats + c.MediaStats
}

// CatalogStats counts tools per moderation state and registered accounts.
// Featured only counts approved tools.
type CatalogStats struct {
	Approved int64
	Pending  int64
	Rejected int64
	Featured int64
	All      int64
	Users    int64
}

// ToolModeration is an admin edit of a tool's visibility. Nil fields are left
// unchanged.
type ToolModeration struct {
	Status     *enums.ToolStatus
	IsFeatured *bool
}

func (m ToolModeration) empty() bool {
	return m.Status == nil && m.IsFeatured == nil
}

// Gateway is the uniqueness-keyed catalog store.
type Gateway interface {
	FindToolByWebsiteURL(ctx context.Context, websiteURL string) (*models.Tool, error)
	FindToolByID(ctx context.Context, id uuid.UUID) (*models.Tool, error)
	FindToolBySlug(ctx context.Context, slug string) (*models.Tool, error)
	ToolSlugExists(ctx context.Context, slug string) (bool, error)
	// InsertTool rejects scraped tools without an owner and maps unique
	// violations to a ConflictError.
	InsertTool(ctx context.Context, tool *models.Tool) error
	KnownWebsiteURLs(ctx context.Context) (map[string]struct{}, error)

	ListApprovedTools(ctx context.Context) ([]models.Tool, error)
	// ListToolsByStatus returns tools in catalog order.
	ListToolsByStatus(ctx context.Context, status enums.ToolStatus) ([]models.Tool, error)
	// ModerateTool applies m and returns the updated tool.
	ModerateTool(ctx context.Context, id uuid.UUID, m ToolModeration) (*models.Tool, error)
	CatalogStats(ctx context.Context) (CatalogStats, error)
	ListToolsMissingSlug(ctx context.Context) ([]models.Tool, error)
	SetToolSlug(ctx context.Context, id uuid.UUID, slug string) error
	BackfillToolCounters(ctx context.Context) (CounterRepair, error)
	AssignMissingOwners(ctx context.Context, ownerID uuid.UUID) (int64, error)

	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByRole(ctx context.Context, role enums.UserRole) (*models.User, error)
	FindAnyUser(ctx context.Context) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func validateModeration(m ToolModeration) error {
	if m.empty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if m.Status != nil && !m.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
			WithDetails(map[string]string{"field": "status"})
	}
	return nil
}

func validateOwnedTool(tool *models.Tool) error {
	if tool == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tool is required")
	}
	if tool.Source == enums.ToolSourceScraped && (tool.SubmittedBy == nil || *tool.SubmittedBy == uuid.Nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "scraped tool requires an owner").
			WithDetails(map[string]string{"field": "submittedBy"})
	}
	return nil
}
