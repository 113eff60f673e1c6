package cart

import (
	"context"
	"time"

	pkgredis "github.com/amaiabotanic/storefront/pkg/redis"
)

type redisClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(storageKey string) string
}

// RedisStorage keeps snapshots in Redis under amaia:cart:<storage key>.
// A positive ttl expires abandoned carts.
type RedisStorage struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisStorage(client redisClient, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func (r *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.client.CartKey(key))
	if pkgredis.IsMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.client.CartKey(key), data, r.ttl)
}
