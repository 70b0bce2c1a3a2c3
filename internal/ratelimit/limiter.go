// Package ratelimit implements the fixed-window limiter that guards the
// generation endpoints.
package ratelimit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/gemini-studio/pkg/logging"
)

var limiterTracer = otel.Tracer("studio.internal.ratelimit")

// Decision is a store's answer for one hit.
type Decision struct {
	Allowed bool
	Count   int
	ResetAt time.Time
}

// Store holds window state. Hit must be atomic per key: it either admits the
// call and increments the counter, or rejects it leaving the bucket untouched.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

// Result is what callers see for one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Unlimited is set when limiting is disabled; the other counters are
	// meaningless then.
	Unlimited bool
}

// Limiter applies a fixed window per key.
type Limiter struct {
	store  Store
	now    func() time.Time
	logger *logging.Logger
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the limiter logger.
func WithLogger(logger *logging.Logger) LimiterOption {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLimiter creates a limiter backed by store. A nil store uses a fresh
// MemoryStore.
func NewLimiter(store Store, opts ...LimiterOption) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		store:  store,
		now:    time.Now,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key builds the bucket key for an identity on one endpoint.
func Key(identity, endpoint string) string {
	return identity + ":" + endpoint
}

// Check records one call against key. A limit below 1 disables limiting.
// Store failures admit the call.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) Result {
	now := l.now()
	if limit < 1 || window <= 0 {
		return Result{Allowed: true, Unlimited: true}
	}

	ctx, span := limiterTracer.Start(ctx, "ratelimit.check")
	defer span.End()
	span.SetAttributes(attribute.String("ratelimit.key", key), attribute.Int("ratelimit.limit", limit))

	d, err := l.store.Hit(ctx, key, limit, window, now)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, admitting request", "key", key, "error", err)
		span.SetAttributes(attribute.Bool("ratelimit.fail_open", true))
		return Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: now.Add(window)}
	}

	res := Result{Allowed: d.Allowed, Limit: limit, ResetAt: d.ResetAt}
	if d.Allowed {
		res.Remaining = max(0, limit-d.Count)
	}
	span.SetAttributes(attribute.Bool("ratelimit.allowed", res.Allowed))
	return res
}
