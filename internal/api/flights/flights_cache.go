package flights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

// Cache stores flight search results by query.
type Cache interface {
	Get(ctx context.Context, key string) ([]types.FlightOption, bool, error)
	Set(ctx context.Context, key string, options []types.FlightOption) error
}

// CacheKey is the cache key of a normalized query.
func CacheKey(q types.FlightQuery) string {
	return fmt.Sprintf("cache:flights:%s:%s:%s",
		strings.ToUpper(strings.TrimSpace(q.Source)),
		strings.ToUpper(strings.TrimSpace(q.Destination)),
		q.OutboundDate)
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)

type MemoryCache struct {
	items *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{items: cache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]types.FlightOption, bool, error) {
	v, found := c.items.Get(key)
	if !found {
		return nil, false, nil
	}
	options, ok := v.([]types.FlightOption)
	if !ok {
		return nil, false, nil
	}
	return options, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, options []types.FlightOption) error {
	c.items.Set(key, options, cache.DefaultExpiration)
	return nil
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]types.FlightOption, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var options []types.FlightOption
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, false, err
	}
	return options, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, options []types.FlightOption) error {
	payload, err := json.Marshal(options)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}
