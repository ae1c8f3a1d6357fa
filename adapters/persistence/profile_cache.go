package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/logger"
)

const profileCachePrefix = "profile:"

// ProfileCache stores fetched profiles in Redis keyed by email.
type ProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProfileCache(rdb *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{rdb: rdb, ttl: ttl}
}

func profileCacheKey(email string) string {
	return profileCachePrefix + email
}

// Get returns (nil, nil) on a miss.
func (c *ProfileCache) Get(ctx context.Context, email string) (*profile.Profile, error) {
	raw, err := c.rdb.Get(ctx, profileCacheKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var p profile.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ProfileCache) Set(ctx context.Context, p *profile.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, profileCacheKey(p.Email), raw, c.ttl).Err()
}

func (c *ProfileCache) Invalidate(ctx context.Context, email string) error {
	return c.rdb.Del(ctx, profileCacheKey(email)).Err()
}

// cachedProfileRepo is a cache-aside decorator. Cache failures are logged
// and the store answers instead; absence is never cached.
type cachedProfileRepo struct {
	next   profile.Repository
	cache  *ProfileCache
	logger logger.Logger
}

func NewCachedProfileRepo(next profile.Repository, cache *ProfileCache, logger logger.Logger) profile.Repository {
	return &cachedProfileRepo{next: next, cache: cache, logger: logger}
}

func (r *cachedProfileRepo) Insert(ctx context.Context, p *profile.Profile) (string, error) {
	id, err := r.next.Insert(ctx, p)
	if err != nil {
		return "", err
	}
	r.invalidate(ctx, p.Email)
	return id, nil
}

func (r *cachedProfileRepo) FindByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	cached, err := r.cache.Get(ctx, email)
	if err != nil {
		r.logger.Warn("Profile cache read failed", zap.String("email", email), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	p, err := r.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, p); err != nil {
		r.logger.Warn("Profile cache write failed", zap.String("email", email), zap.Error(err))
	}
	return p, nil
}

func (r *cachedProfileRepo) UpdateByEmail(ctx context.Context, p *profile.Profile) (profile.UpdateResult, error) {
	res, err := r.next.UpdateByEmail(ctx, p)
	if err != nil {
		return res, err
	}
	r.invalidate(ctx, p.Email)
	return res, nil
}

func (r *cachedProfileRepo) invalidate(ctx context.Context, email string) {
	if err := r.cache.Invalidate(ctx, email); err != nil {
		r.logger.Warn("Profile cache invalidation failed", zap.String("email", email), zap.Error(err))
	}
}
