package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "ratelimit:"

// hitScript admits or rejects one call atomically. Times are unix millis.
// Returns {allowed, count, reset_at}.
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local reset = tonumber(redis.call('HGET', KEYS[1], 'reset_at'))
if not reset or now >= reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset_at', reset)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, 1, reset}
end
local count = tonumber(redis.call('HGET', KEYS[1], 'count')) or 0
if count >= limit then
  return {0, count, reset}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {1, count, reset}
`)

// RedisStore keeps buckets in Redis so every instance shares one window.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisStore creates a store using client. An empty prefix uses "ratelimit:".
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	if s.client == nil {
		return Decision{}, fmt.Errorf("ratelimit: redis client not configured")
	}
	vals, err := hitScript.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis hit: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", vals)
	}
	return Decision{
		Allowed: vals[0] == 1,
		Count:   int(vals[1]),
		ResetAt: time.UnixMilli(vals[2]),
	}, nil
}
