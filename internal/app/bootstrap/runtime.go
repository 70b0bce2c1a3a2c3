package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/gemini-studio/internal/config"
	"github.com/wolfman30/gemini-studio/internal/ratelimit"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

const (
	storeRedis = "redis"

	janitorInterval = time.Minute
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLimiterStore picks the rate limit store. A Redis store is used only
// when RATE_LIMIT_STORE=redis and the server answers a ping; otherwise
// buckets stay in memory and a janitor prunes them until ctx is done.
func BuildLimiterStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ratelimit.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg != nil && cfg.RateLimitStore == storeRedis {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("rate limit store: redis", "addr", cfg.RedisAddr)
			return ratelimit.NewRedisStore(client, "")
		}
		logger.Warn("rate limit store: redis unavailable, falling back to memory")
	}

	store := ratelimit.NewMemoryStore()
	store.StartJanitor(ctx, janitorInterval)
	return store
}
