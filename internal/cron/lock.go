package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 25 * time.Hour

// Lock keeps two workers from running the maintenance cycle at once.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// holderReporter is implemented by locks that can name their current owner.
type holderReporter interface {
	Holder(ctx context.Context) (string, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SET NX lease. The stored value is "<host>/<token>" so an
// operator can see which worker holds it; only that token releases it.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	host  string
	token string
}

// NewRedisLock builds a lease on key. A non-positive ttl uses 25h, which
// outlives one daily cycle.
func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return &RedisLock{store: store, key: key, ttl: ttl, host: host}, nil
}

func (l *RedisLock) Key() string { return l.key }

func (l *RedisLock) TTL() time.Duration { return l.ttl }

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := l.host + "/" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Holder returns the stored owner value, or "" when the lock is free.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	value, err := l.store.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", l.key, err)
	}
	return value, nil
}

// Release deletes the key when this instance still owns it. An expired or
// stolen lease is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	defer func() { l.token = "" }()

	holder, err := l.Holder(ctx)
	if err != nil {
		return err
	}
	if holder != l.token {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
