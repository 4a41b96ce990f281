// Package catalogcache maintains the Redis copy of the public catalog read by
// the API: the approved tool list, the featured list and one key per tool.
package catalogcache

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
)

const (
	KeyAllTools      = "allTools"
	KeyFeaturedTools = "featuredTools"
	KeyMeta          = "cache:meta"
	CacheVersion     = "1.0"

	DefaultTTL = time.Hour
)

// ToolKey addresses one tool by id.
func ToolKey(id string) string { return "tool:" + id }

// SlugKey addresses one tool by slug.
func SlugKey(slug string) string { return "tool:slug:" + slug }

// Store is the redis surface the cache needs; *redis.Client from pkg/redis
// satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DeleteMatching(ctx context.Context, pattern string) (int64, error)
}

// Meta is stored under KeyMeta after every refresh.
type Meta struct {
	LastUpdated        time.Time `json:"lastUpdated"`
	TotalTools         int       `json:"totalTools"`
	FeaturedTools      int       `json:"featuredTools"`
	CacheVersion       string    `json:"cacheVersion"`
	CachedIndividually int       `json:"cachedIndividually"`
	Errors             int       `json:"errors"`
}

type Cache struct {
	store   Store
	prefix  string
	ttl     time.Duration
	now     func() time.Time
	marshal func(any) ([]byte, error)
}

func New(store Store, cfg config.CacheConfig) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:   store,
		prefix:  cfg.KeyPrefix,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
		marshal: json.Marshal,
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) key(k string) string { return c.prefix + k }

// Clear removes the list keys, the metadata and every per-tool key.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if err := c.store.Del(ctx, c.key(KeyAllTools), c.key(KeyFeaturedTools), c.key(KeyMeta)); err != nil {
		return 0, fmt.Errorf("clearing catalog keys: %w", err)
	}
	n, err := c.store.DeleteMatching(ctx, c.key("tool:*"))
	if err != nil {
		return 0, fmt.Errorf("clearing tool keys: %w", err)
	}
	return n, nil
}

// Invalidate drops the list keys and the keys of one tool after an edit so
// the next read falls through to the store. slug may be empty.
func (c *Cache) Invalidate(ctx context.Context, id, slug string) error {
	keys := []string{c.key(KeyAllTools), c.key(KeyFeaturedTools), c.key(ToolKey(id))}
	if slug != "" {
		keys = append(keys, c.key(SlugKey(slug)))
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("invalidating tool %s: %w", id, err)
	}
	return nil
}

// Refresh rebuilds the cache from tools, which must already be approved and
// in catalog order. A tool that fails to serialize is counted in Meta.Errors
// and left out; any redis failure aborts the refresh.
func (c *Cache) Refresh(ctx context.Context, tools []models.Tool) (Meta, error) {
	if _, err := c.Clear(ctx); err != nil {
		return Meta{}, err
	}

	meta := Meta{LastUpdated: c.now(), CacheVersion: CacheVersion}
	all := make([]json.RawMessage, 0, len(tools))
	featured := make([]json.RawMessage, 0)
	encoded := make([][]byte, len(tools))

	for i := range tools {
		body, err := c.marshal(&tools[i])
		if err != nil {
			meta.Errors++
			continue
		}
		encoded[i] = body
		all = append(all, body)
		if tools[i].IsFeatured {
			featured = append(featured, body)
		}
	}
	meta.TotalTools = len(all)
	meta.FeaturedTools = len(featured)

	if err := c.putJSON(ctx, KeyAllTools, all); err != nil {
		return meta, err
	}
	if err := c.putJSON(ctx, KeyFeaturedTools, featured); err != nil {
		return meta, err
	}

	for i, body := range encoded {
		if body == nil {
			continue
		}
		if err := c.store.Set(ctx, c.key(ToolKey(tools[i].ID.String())), string(body), c.ttl); err != nil {
			return meta, fmt.Errorf("caching tool %s: %w", tools[i].ID, err)
		}
		if tools[i].Slug != "" {
			if err := c.store.Set(ctx, c.key(SlugKey(tools[i].Slug)), string(body), c.ttl); err != nil {
				return meta, fmt.Errorf("caching tool slug %s: %w", tools[i].Slug, err)
			}
		}
		meta.CachedIndividually++
	}

	if err := c.putJSON(ctx, KeyMeta, meta); err != nil {
		return meta, err
	}
	return meta, nil
}

func (c *Cache) putJSON(ctx context.Context, key string, value any) error {
	body, err := c.marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := c.store.Set(ctx, c.key(key), string(body), c.ttl); err != nil {
		return fmt.Errorf("caching %s: %w", key, err)
	}
	return nil
}

// Get returns the cached JSON at key. hit is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (body []byte, hit bool, err error) {
	raw, err := c.store.Get(ctx, c.key(key))
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(raw), true, nil
}

// Loader produces the value cached on a miss.
type Loader func(ctx context.Context) (any, error)

// ReadThrough serves key from the cache, or calls load, caches its JSON with
// the TTL and returns it. A failing cache read or write degrades to the
// loader; errors from load are returned.
func (c *Cache) ReadThrough(ctx context.Context, key string, load Loader) (body []byte, hit bool, err error) {
	if cached, ok, getErr := c.Get(ctx, key); getErr == nil && ok {
		return cached, true, nil
	}

	value, err := load(ctx)
	if err != nil {
		return nil, false, err
	}
	body, err = c.marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("encoding %s: %w", key, err)
	}
	_ = c.store.Set(ctx, c.key(key), string(body), c.ttl)
	return body, false, nil
}
