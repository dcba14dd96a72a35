package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/autoci/internal/config"
	"github.com/sevigo/autoci/internal/dashboard"
	"github.com/sevigo/autoci/internal/github"
	"github.com/sevigo/autoci/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, svc dashboard.Service, ingestor *github.WorkflowIngestor, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout(cfg)))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		handler.NewRepositoryHandler(svc, logger).Routes(r)

		webhookHandler := handler.NewWebhookHandler(&cfg.GitHub, ingestor, logger)
		r.Post("/webhook/github", webhookHandler.Handle)
	})

	return r
}

// requestTimeout leaves room for a synchronous AI call.
func requestTimeout(cfg *config.Config) time.Duration {
	return max(60*time.Second, cfg.AI.RequestTimeout+30*time.Second)
}
