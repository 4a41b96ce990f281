package controllers

import (
	"context"
	stdErrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/aitools-scraper/api/middleware"
	"github.com/angelmondragon/aitools-scraper/api/responses"
	"github.com/angelmondragon/aitools-scraper/api/validators"
	"github.com/angelmondragon/aitools-scraper/internal/store"
	pkgAuth "github.com/angelmondragon/aitools-scraper/pkg/auth"
	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
	"github.com/angelmondragon/aitools-scraper/pkg/security"
)

// AdminStore is the part of the gateway the moderation routes use.
type AdminStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListToolsByStatus(ctx context.Context, status enums.ToolStatus) ([]models.Tool, error)
	ModerateTool(ctx context.Context, id uuid.UUID, m store.ToolModeration) (*models.Tool, error)
	CatalogStats(ctx context.Context) (store.CatalogStats, error)
}

// CatalogInvalidator drops the cached copies of an edited tool; nil skips it.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, id, slug string) error
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type adminLoginResponse struct {
	ID             uuid.UUID      `json:"_id"`
	Email          string         `json:"email"`
	Role           enums.UserRole `json:"role"`
	CompanyLogoURL string         `json:"companyLogoUrl"`
	Token          string         `json:"token"`
}

// AdminLogin exchanges admin credentials for an access token. Unknown
// emails, other roles and wrong passwords get the same answer.
func AdminLogin(users AdminStore, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	denied := pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized as an admin")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req adminLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := users.FindUserByEmail(ctx, req.Email)
		if stdErrors.Is(err, store.ErrNotFound) {
			responses.WriteError(ctx, logg, w, denied)
			return
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user"))
			return
		}
		if user.Role != enums.UserRoleAdmin {
			responses.WriteError(ctx, logg, w, denied)
			return
		}
		ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
		if err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "user_id", user.ID.String()), "admin password hash unreadable")
		}
		if !ok {
			responses.WriteError(ctx, logg, w, denied)
			return
		}

		token, err := pkgAuth.MintAccessToken(cfg, time.Now(), user.ID, user.Role)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}
		responses.WriteSuccess(w, adminLoginResponse{
			ID:             user.ID,
			Email:          user.Email,
			Role:           user.Role,
			CompanyLogoURL: user.CompanyLogoURL,
			Token:          token,
		})
	}
}

// AdminToolsByStatus lists tools in one moderation state. The state comes
// from the {status} route param, then the status query, then defaults to
// pending.
func AdminToolsByStatus(tools AdminStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "status")
		if raw == "" {
			raw = r.URL.Query().Get("status")
		}
		if raw == "" {
			raw = string(enums.ToolStatusPending)
		}
		status, err := enums.ParseToolStatus(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]string{"field": "status"}))
			return
		}
		list, err := tools.ListToolsByStatus(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tools"))
			return
		}
		if list == nil {
			list = []models.Tool{}
		}
		responses.WriteSuccess(w, list)
	}
}

type moderateToolRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	IsFeatured *bool   `json:"isFeatured"`
}

// ModerateTool sets a tool's status and featured flag, then drops the cached
// lists and the tool's own keys.
func ModerateTool(tools AdminStore, cache CatalogInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req moderateToolRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		update := store.ToolModeration{IsFeatured: req.IsFeatured}
		if req.Status != nil {
			status, err := enums.ParseToolStatus(*req.Status)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			update.Status = &status
		}

		tool, err := tools.ModerateTool(ctx, id, update)
		switch {
		case stdErrors.Is(err, store.ErrNotFound):
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found"))
			return
		case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
			responses.WriteError(ctx, logg, w, err)
			return
		case err != nil:
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tool"))
			return
		}

		if cache != nil {
			if err := cache.Invalidate(ctx, tool.ID.String(), tool.Slug); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "tool_id", tool.ID.String()), "catalog cache invalidation failed", err)
			}
		}
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"tool_id":     tool.ID.String(),
				"status":      string(tool.Status),
				"is_featured": tool.IsFeatured,
				"admin_id":    middleware.UserIDFromContext(ctx),
			}), "tool moderated")
		}
		responses.WriteSuccess(w, tool)
	}
}

type adminStatsResponse struct {
	Tools struct {
		Approved int64 `json:"approved"`
		Pending  int64 `json:"pending"`
		Rejected int64 `json:"rejected"`
		Featured int64 `json:"featured"`
		All      int64 `json:"all"`
	} `json:"tools"`
	Users struct {
		Total int64 `json:"total"`
	} `json:"users"`
}

func AdminStats(tools AdminStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := tools.CatalogStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count catalog"))
			return
		}
		var out adminStatsResponse
		out.Tools.Approved = stats.Approved
		out.Tools.Pending = stats.Pending
		out.Tools.Rejected = stats.Rejected
		out.Tools.Featured = stats.Featured
		out.Tools.All = stats.All
		out.Users.Total = stats.Users
		responses.WriteSuccess(w, out)
	}
}
