package repositories

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/plcover/internal/shared"
)

// RedisKV implements [KV] as fields of a single Redis hash.
//
// HMGET, HSET, and HDEL with several fields are single commands, so each call is atomic.
type RedisKV struct {
	client redis.UniversalClient
	key    string
}

// NewRedisKV creates a new [RedisKV] storing fields under hash key.
func NewRedisKV(client redis.UniversalClient, key string) *RedisKV {
	if key == "" {
		key = "plcover:session"
	}
	return &RedisKV{client: client, key: key}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis at %s: %w", shared.ErrServiceUnavailable, addr, err)
	}
	return client, nil
}

// Get reads keys from the hash with one HMGET.
func (r *RedisKV) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}

	res, err := r.client.HMGet(ctx, r.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.key, err)
	}

	for i, v := range res {
		if s, ok := v.(string); ok {
			values[keys[i]] = s
		}
	}
	return values, nil
}

// Put writes all entries to the hash with one HSET.
func (r *RedisKV) Put(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	args := make([]any, 0, len(values)*2)
	for _, k := range sortedKeys(values) {
		args = append(args, k, values[k])
	}

	if err := r.client.HSet(ctx, r.key, args...).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.key, err)
	}
	return nil
}

// Delete removes fields from the hash with one HDEL.
func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.key, err)
	}
	return nil
}
