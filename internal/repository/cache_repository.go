package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/linkcents/linkcents/internal/models"
)

// CacheRepository fronts the link store on the redirect hot path and keeps
// the per-link visitor sets that back the unique-visitor counter.
type CacheRepository interface {
	Get(ctx context.Context, code string) (*models.Link, error)
	Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
	// AddVisitor records the visitor IP in the link's set and reports whether
	// it was seen for the first time.
	AddVisitor(ctx context.Context, linkID uuid.UUID, ip string) (bool, error)
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	data, err := r.redis.Client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		return nil, err
	}

	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	return &link, nil
}

func (r *cacheRepository) Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(code), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	return r.redis.Client.Del(ctx, r.key(code)).Err()
}

func (r *cacheRepository) AddVisitor(ctx context.Context, linkID uuid.UUID, ip string) (bool, error) {
	added, err := r.redis.Client.SAdd(ctx, "visitors:"+linkID.String(), ip).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

func (r *cacheRepository) key(code string) string {
	return "link:" + code
}
