package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hayashida/spotbot/internal/http/handlers"
	httpmiddleware "github.com/hayashida/spotbot/internal/http/middleware"
	"github.com/hayashida/spotbot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	LineWebhook    *handlers.LineWebhookHandler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.HealthCheck)
	if cfg.LineWebhook != nil {
		r.Post("/webhooks/line", cfg.LineWebhook.HandleWebhook)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
