package catalogcache

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

type memStore struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) DeleteMatching(_ context.Context, pattern string) (int64, error) {
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func catalogTool(name, slug string, featured bool) models.Tool {
	return models.Tool{
		ID:         uuid.New(),
		Name:       name,
		Slug:       slug,
		WebsiteURL: "https://" + name + ".example",
		Tags:       types.Tags{"seo"},
		Status:     enums.ToolStatusApproved,
		IsFeatured: featured,
		Visual:     types.Visual{}.WithDefaults(),
	}
}

func TestRefreshWritesEveryKey(t *testing.T) {
	st := newMemStore()
	st.data["tool:stale"] = "{}"
	st.data["unrelated"] = "keep"
	cache := New(st, config.CacheConfig{TTL: 30 * time.Minute})

	tools := []models.Tool{
		catalogTool("featured", "featured", true),
		catalogTool("plain", "plain", false),
		catalogTool("legacy", "", false),
	}
	meta, err := cache.Refresh(context.Background(), tools)
	require.NoError(t, err)

	assert.Equal(t, 3, meta.TotalTools)
	assert.Equal(t, 1, meta.FeaturedTools)
	assert.Equal(t, 3, meta.CachedIndividually)
	assert.Equal(t, 0, meta.Errors)
	assert.Equal(t, CacheVersion, meta.CacheVersion)

	assert.NotContains(t, st.data, "tool:stale")
	assert.Equal(t, "keep", st.data["unrelated"])

	var all []map[string]any
	require.NoError(t, json.Unmarshal([]byte(st.data[KeyAllTools]), &all))
	require.Len(t, all, 3)
	assert.Equal(t, "featured", all[0]["name"])
	assert.Equal(t, tools[0].ID.String(), all[0]["_id"])

	var featured []map[string]any
	require.NoError(t, json.Unmarshal([]byte(st.data[KeyFeaturedTools]), &featured))
	assert.Len(t, featured, 1)

	assert.Contains(t, st.data, ToolKey(tools[2].ID.String()))
	assert.Contains(t, st.data, SlugKey("plain"))
	assert.NotContains(t, st.data, SlugKey(""))
	assert.Equal(t, 30*time.Minute, st.ttls[KeyMeta])

	var stored Meta
	require.NoError(t, json.Unmarshal([]byte(st.data[KeyMeta]), &stored))
	assert.Equal(t, 3, stored.TotalTools)
}

func TestRefreshCountsSerializationErrors(t *testing.T) {
	st := newMemStore()
	cache := New(st, config.CacheConfig{KeyPrefix: "test:"})
	broken := catalogTool("broken", "broken", false)
	cache.marshal = func(v any) ([]byte, error) {
		if tool, ok := v.(*models.Tool); ok && tool.Name == "broken" {
			return nil, errors.New("bad float")
		}
		return json.Marshal(v)
	}

	meta, err := cache.Refresh(context.Background(), []models.Tool{catalogTool("ok", "ok", false), broken})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Errors)
	assert.Equal(t, 1, meta.TotalTools)
	assert.Equal(t, 1, meta.CachedIndividually)
	assert.Contains(t, st.data, "test:"+SlugKey("ok"))
	assert.NotContains(t, st.data, "test:"+SlugKey("broken"))
	assert.Equal(t, DefaultTTL, st.ttls["test:"+KeyAllTools])
}

func TestRefreshFailsOnRedisError(t *testing.T) {
	st := newMemStore()
	st.err = errors.New("redis down")
	_, err := New(st, config.CacheConfig{}).Refresh(context.Background(), []models.Tool{catalogTool("a", "a", false)})
	assert.Error(t, err)
}

func TestReadThrough(t *testing.T) {
	st := newMemStore()
	cache := New(st, config.CacheConfig{})
	ctx := context.Background()
	loads := 0
	load := func(context.Context) (any, error) {
		loads++
		return []string{"a"}, nil
	}

	body, hit, err := cache.ReadThrough(ctx, KeyAllTools, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.JSONEq(t, `["a"]`, string(body))

	body, hit, err = cache.ReadThrough(ctx, KeyAllTools, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.JSONEq(t, `["a"]`, string(body))
	assert.Equal(t, 1, loads)

	st.err = errors.New("redis down")
	_, hit, err = cache.ReadThrough(ctx, "other", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, loads)

	boom := errors.New("store down")
	_, _, err = cache.ReadThrough(ctx, "other", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestInvalidateDropsListsAndToolKeys(t *testing.T) {
	st := newMemStore()
	cache := New(st, config.CacheConfig{KeyPrefix: "p:"})
	tools := []models.Tool{catalogTool("featured", "featured", true), catalogTool("plain", "plain", false)}
	_, err := cache.Refresh(context.Background(), tools)
	require.NoError(t, err)

	id := tools[0].ID.String()
	require.NoError(t, cache.Invalidate(context.Background(), id, "featured"))

	assert.NotContains(t, st.data, "p:"+KeyAllTools)
	assert.NotContains(t, st.data, "p:"+KeyFeaturedTools)
	assert.NotContains(t, st.data, "p:"+ToolKey(id))
	assert.NotContains(t, st.data, "p:"+SlugKey("featured"))
	assert.Contains(t, st.data, "p:"+ToolKey(tools[1].ID.String()))
	assert.Contains(t, st.data, "p:"+KeyMeta)
}
