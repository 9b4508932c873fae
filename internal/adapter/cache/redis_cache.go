package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maximzom/shoebot/internal/usecase"
)

// RedisCache keeps a best-effort copy of order statuses so the read
// endpoints and the status-change consumer don't hit MySQL for every
// poll. Misses just fall through to the repo.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) SetStatus(ctx context.Context, orderNumber string, status string) error {
	return r.rdb.Set(ctx, "order:status:"+orderNumber, status, r.ttl).Err()
}

func (r *RedisCache) GetStatus(ctx context.Context, orderNumber string) (string, error) {
	val, err := r.rdb.Get(ctx, "order:status:"+orderNumber).Result()
	if err == redis.Nil {
		return "", usecase.ErrNotFound
	}
	return val, err
}

var _ usecase.OrderCache = (*RedisCache)(nil)
