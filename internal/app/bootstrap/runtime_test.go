package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/gemini-studio/internal/config"
	"github.com/wolfman30/gemini-studio/internal/gemini"
	"github.com/wolfman30/gemini-studio/internal/ratelimit"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

func TestBuildRedisClient_Disabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
}

func TestBuildRedisClient_Verified(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, true)
	require.NotNil(t, client)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestBuildLimiterStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)

	store := BuildLimiterStore(ctx, &appconfig.Config{RateLimitStore: "redis", RedisAddr: mr.Addr()}, nil)
	assert.IsType(t, &ratelimit.RedisStore{}, store)

	store = BuildLimiterStore(ctx, &appconfig.Config{RateLimitStore: "memory"}, nil)
	assert.IsType(t, &ratelimit.MemoryStore{}, store)

	// Redis requested but nothing configured.
	store = BuildLimiterStore(ctx, &appconfig.Config{RateLimitStore: "redis"}, nil)
	assert.IsType(t, &ratelimit.MemoryStore{}, store)
}

func TestBuildModelClient(t *testing.T) {
	ctx := context.Background()

	client, err := BuildModelClient(ctx, &appconfig.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)

	_, err = BuildModelClient(ctx, &appconfig.Config{GeminiAPIKey: "k", GeminiBackend: "bard"}, nil)
	assert.ErrorContains(t, err, "unknown GEMINI_BACKEND")

	_, err = BuildModelClient(ctx, nil, nil)
	assert.Error(t, err)
}

func TestBuildModelClient_LegacyWarnsAboutImageOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info", "json")

	client, err := BuildModelClient(context.Background(), &appconfig.Config{GeminiAPIKey: "test-key", GeminiBackend: "legacy"}, logger)
	require.NoError(t, err)
	legacy, ok := client.(*gemini.LegacyClient)
	require.True(t, ok)
	t.Cleanup(func() { _ = legacy.Close() })

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "legacy", entry["backend"])
	assert.Contains(t, entry["msg"], "cannot request image output")
}
