package bootstrap

import (
	"context"
	"fmt"

	appconfig "github.com/wolfman30/gemini-studio/internal/config"
	"github.com/wolfman30/gemini-studio/internal/gemini"
	"github.com/wolfman30/gemini-studio/internal/generation"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

const (
	backendGenAI  = "genai"
	backendLegacy = "legacy"
)

// BuildModelClient creates the Gemini client for the configured backend. It
// returns a nil client and no error when GEMINI_API_KEY is unset, so requests
// fail with a missing-key response instead of the server refusing to start.
func BuildModelClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (generation.ModelClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; generation endpoints will return errors")
		return nil, nil
	}

	switch cfg.GeminiBackend {
	case backendLegacy:
		client, err := gemini.NewLegacyClient(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: legacy gemini client: %w", err)
		}
		logger.Warn("gemini backend: legacy generative-ai-go SDK; it cannot request image output, so image generation only succeeds once the fallback reaches the config-free stage",
			"backend", backendLegacy,
		)
		return client, nil
	case backendGenAI, "":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		logger.Info("gemini backend: genai SDK")
		return client, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown GEMINI_BACKEND %q", cfg.GeminiBackend)
	}
}
