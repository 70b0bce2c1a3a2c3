package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/gemini-studio/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/gemini-studio/internal/http/middleware"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Generate           *handlers.GenerateHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Generate != nil {
		r.Route("/api", func(api chi.Router) {
			api.Post("/chat", cfg.Generate.Chat)
			api.Post("/image", cfg.Generate.Image)
		})
	}

	return r
}
