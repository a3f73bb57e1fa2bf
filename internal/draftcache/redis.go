package draftcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Backend on a Redis server. Keys are namespaced under
// "minutes:draft:".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client. A zero ttl keeps values until deleted.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl}
}

// OpenRedis connects using a redis:// URL and verifies the server answers.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

func redisKey(key string) string {
	return "minutes:draft:" + key
}

// GetDraft implements Backend.
func (r *Redis) GetDraft(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PutDraft implements Backend.
func (r *Redis) PutDraft(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, redisKey(key), value, r.ttl).Err()
}

// DeleteDraft implements Backend.
func (r *Redis) DeleteDraft(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisKey(key)).Err()
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
