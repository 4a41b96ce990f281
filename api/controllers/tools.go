package controllers

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/aitools-scraper/api/responses"
	"github.com/angelmondragon/aitools-scraper/api/validators"
	"github.com/angelmondragon/aitools-scraper/internal/catalogcache"
	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const cacheHeader = "X-Cache"

// CatalogReader is the read side of the store the catalog routes fall back to.
type CatalogReader interface {
	ListApprovedTools(ctx context.Context) ([]models.Tool, error)
	FindToolByID(ctx context.Context, id uuid.UUID) (*models.Tool, error)
	FindToolBySlug(ctx context.Context, slug string) (*models.Tool, error)
}

// CatalogCache serves cached JSON and fills misses; nil disables caching.
type CatalogCache interface {
	ReadThrough(ctx context.Context, key string, load catalogcache.Loader) ([]byte, bool, error)
}

func ListTools(catalog CatalogReader, cache CatalogCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveCached(w, r, cache, logg, catalogcache.KeyAllTools, func(ctx context.Context) (any, error) {
			tools, err := catalog.ListApprovedTools(ctx)
			if tools == nil && err == nil {
				tools = []models.Tool{}
			}
			return tools, err
		})
	}
}

func FeaturedTools(catalog CatalogReader, cache CatalogCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveCached(w, r, cache, logg, catalogcache.KeyFeaturedTools, func(ctx context.Context) (any, error) {
			tools, err := catalog.ListApprovedTools(ctx)
			if err != nil {
				return nil, err
			}
			featured := make([]models.Tool, 0, len(tools))
			for _, tool := range tools {
				if tool.IsFeatured {
					featured = append(featured, tool)
				}
			}
			return featured, nil
		})
	}
}

func ToolByID(catalog CatalogReader, cache CatalogCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serveCached(w, r, cache, logg, catalogcache.ToolKey(id.String()), func(ctx context.Context) (any, error) {
			return publicTool(catalog.FindToolByID(ctx, id))
		})
	}
}

func ToolBySlug(catalog CatalogReader, cache CatalogCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug, err := validators.ParseSlugParam(chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serveCached(w, r, cache, logg, catalogcache.SlugKey(slug), func(ctx context.Context) (any, error) {
			return publicTool(catalog.FindToolBySlug(ctx, slug))
		})
	}
}

// publicTool hides tools that are missing or not approved.
func publicTool(tool *models.Tool, err error) (*models.Tool, error) {
	if stdErrors.Is(err, store.ErrNotFound) || (err == nil && tool.Status != enums.ToolStatusApproved) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tool")
	}
	return tool, nil
}

func serveCached(w http.ResponseWriter, r *http.Request, cache CatalogCache, logg *logger.Logger, key string, load catalogcache.Loader) {
	ctx := r.Context()
	var (
		body []byte
		hit  bool
		err  error
	)
	if cache != nil {
		body, hit, err = cache.ReadThrough(ctx, key, load)
	} else {
		var value any
		if value, err = load(ctx); err == nil {
			body, err = json.Marshal(value)
		}
	}
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
		}
		responses.WriteError(ctx, logg, w, err)
		return
	}
	if hit {
		w.Header().Set(cacheHeader, "HIT")
	} else {
		w.Header().Set(cacheHeader, "MISS")
	}
	responses.WriteRawData(w, http.StatusOK, body)
}
