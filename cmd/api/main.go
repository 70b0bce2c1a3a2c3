package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/gemini-studio/cmd/mainconfig"
	appconfig "github.com/wolfman30/gemini-studio/internal/config"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

func main() {
	// Local overrides first; godotenv never replaces variables already set.
	loadEnvFiles(".env.local", ".env")

	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting gemini-studio API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"gemini_backend", cfg.GeminiBackend,
		"rate_limit_store", cfg.RateLimitStore,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	r, err := mainconfig.BuildRouter(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	// Image generation routinely runs past 15s.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	stop()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// loadEnvFiles loads each file that exists, earlier files taking precedence.
func loadEnvFiles(paths ...string) []string {
	var loaded []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	return loaded
}
