package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, int, time.Duration, time.Time) (Decision, error) {
	return Decision{}, errors.New("connection refused")
}

func exerciseWindow(t *testing.T, store Store) {
	t.Helper()
	clock := newFakeClock()
	limiter := NewLimiter(store, WithClock(clock.Now))
	ctx := context.Background()
	window := time.Minute
	key := Key("203.0.113.7", "chat")

	first := limiter.Check(ctx, key, 3, window)
	require.True(t, first.Allowed)
	assert.Equal(t, 2, first.Remaining)
	assert.True(t, first.ResetAt.Equal(clock.Now().Add(window)))

	clock.Advance(10 * time.Second)
	second := limiter.Check(ctx, key, 3, window)
	require.True(t, second.Allowed)
	assert.Equal(t, 1, second.Remaining)
	assert.True(t, second.ResetAt.Equal(first.ResetAt), "window does not slide")

	third := limiter.Check(ctx, key, 3, window)
	require.True(t, third.Allowed)
	assert.Equal(t, 0, third.Remaining)

	for i := 0; i < 3; i++ {
		rejected := limiter.Check(ctx, key, 3, window)
		assert.False(t, rejected.Allowed)
		assert.Equal(t, 0, rejected.Remaining)
		assert.True(t, rejected.ResetAt.Equal(first.ResetAt))
	}

	clock.Advance(window)
	renewed := limiter.Check(ctx, key, 3, window)
	require.True(t, renewed.Allowed)
	assert.Equal(t, 2, renewed.Remaining)
	assert.True(t, renewed.ResetAt.Equal(clock.Now().Add(window)))
}

func TestLimiter_FixedWindowMemory(t *testing.T) {
	exerciseWindow(t, NewMemoryStore())
}

func TestLimiter_EndpointsAreIndependent(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	ctx := context.Background()

	assert.True(t, limiter.Check(ctx, Key("1.2.3.4", "chat"), 1, time.Minute).Allowed)
	assert.False(t, limiter.Check(ctx, Key("1.2.3.4", "chat"), 1, time.Minute).Allowed)
	assert.True(t, limiter.Check(ctx, Key("1.2.3.4", "image"), 1, time.Minute).Allowed)
	assert.True(t, limiter.Check(ctx, Key("5.6.7.8", "chat"), 1, time.Minute).Allowed)
}

func TestLimiter_ConcurrentCallsNeverExceedLimit(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore())
	const limit = 10
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check(context.Background(), "shared", limit, time.Minute).Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(limit), admitted.Load())
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(failingStore{}, WithClock(clock.Now))

	res := limiter.Check(context.Background(), "k", 5, time.Minute)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.True(t, res.ResetAt.Equal(clock.Now().Add(time.Minute)))
}

func TestLimiter_ZeroLimitDisables(t *testing.T) {
	limiter := NewLimiter(nil)
	for i := 0; i < 5; i++ {
		res := limiter.Check(context.Background(), "k", 0, time.Minute)
		assert.True(t, res.Allowed)
		assert.True(t, res.Unlimited)
	}

	res := limiter.Check(context.Background(), "k", 5, 0)
	assert.True(t, res.Unlimited, "a zero window also disables limiting")

	res = limiter.Check(context.Background(), "k", 5, time.Minute)
	assert.False(t, res.Unlimited)
}

func TestMemoryStore_Prune(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	ctx := context.Background()

	_, err := store.Hit(ctx, "old", 5, time.Second, now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = store.Hit(ctx, "fresh", 5, time.Minute, now)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Prune(now))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Janitor(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Hit(context.Background(), "stale", 5, time.Millisecond, time.Now().Add(-time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartJanitor(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for first hop", map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.1"}, "10.0.0.2:443", "198.51.100.1"},
		{"real ip", map[string]string{"X-Real-Ip": "198.51.100.2"}, "10.0.0.2:443", "198.51.100.2"},
		{"empty forwarded falls through", map[string]string{"X-Forwarded-For": " , "}, "192.0.2.5:1234", "192.0.2.5"},
		{"remote addr host", nil, "192.0.2.9:5555", "192.0.2.9"},
		{"remote addr without port", nil, "192.0.2.10", "192.0.2.10"},
		{"nothing known", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/chat", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIdentity(r))
		})
	}
}
