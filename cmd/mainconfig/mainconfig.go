// Package mainconfig holds the wiring shared by the studio binaries.
package mainconfig

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/gemini-studio/internal/api/router"
	"github.com/wolfman30/gemini-studio/internal/app/bootstrap"
	appconfig "github.com/wolfman30/gemini-studio/internal/config"
	"github.com/wolfman30/gemini-studio/internal/generation"
	"github.com/wolfman30/gemini-studio/internal/http/handlers"
	"github.com/wolfman30/gemini-studio/internal/observability/metrics"
	"github.com/wolfman30/gemini-studio/internal/ratelimit"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

// SetupMetrics creates a dedicated registry with the generation metrics and
// the Go runtime collectors. Both return values are nil when disabled.
func SetupMetrics(enabled bool) (http.Handler, *metrics.GenerationMetrics) {
	if !enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewGenerationMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// BuildOrchestrator creates the model client for cfg and wraps it in an
// orchestrator.
func BuildOrchestrator(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, m *metrics.GenerationMetrics) (*generation.Orchestrator, error) {
	client, err := bootstrap.BuildModelClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return generation.NewOrchestrator(client, generation.WithLogger(logger), generation.WithMetrics(m)), nil
}

// BuildRouter wires the full HTTP surface. ctx bounds background work such as
// the in-memory limiter janitor.
func BuildRouter(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mainconfig: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	metricsHandler, m := SetupMetrics(cfg.MetricsEnabled)

	orchestrator, err := BuildOrchestrator(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewLimiter(bootstrap.BuildLimiterStore(ctx, cfg, logger), ratelimit.WithLogger(logger))
	generate := handlers.NewGenerateHandler(orchestrator, limiter, handlers.GenerateConfig{
		ChatLimit:    cfg.ChatRateLimit,
		ImageLimit:   cfg.ImageRateLimit,
		Window:       cfg.RateLimitWindow,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Production:   cfg.IsProduction(),
	}, logger, m)

	return router.New(&router.Config{
		Logger:             logger,
		Generate:           generate,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}), nil
}
