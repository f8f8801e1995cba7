package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	rdb *redis.Client
}

func ConnectRedis(addr, password string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return &Redis{rdb: rdb}, nil
}

// GetJSON decodes the value at key into dst. A missing key is not an error.
func (c *Redis) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Redis) SetJSON(ctx context.Context, key string, v any, expiration time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, b, expiration).Err()
}

func (c *Redis) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}

// JSONStore is a Store of V values kept in Redis under prefix.
type JSONStore[V any] struct {
	redis  *Redis
	prefix string
	ttl    time.Duration
}

func NewJSONStore[V any](r *Redis, prefix string, ttl time.Duration) *JSONStore[V] {
	return &JSONStore[V]{redis: r, prefix: prefix, ttl: ttl}
}

func (s *JSONStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var v V
	ok, err := s.redis.GetJSON(ctx, s.prefix+key, &v)
	return v, ok, err
}

func (s *JSONStore[V]) Set(ctx context.Context, key string, value V) error {
	return s.redis.SetJSON(ctx, s.prefix+key, value, s.ttl)
}
