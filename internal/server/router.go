package server

import (
	"net/http"

	"github.com/cloo-solutions/sanad/internal/api"
	"github.com/cloo-solutions/sanad/internal/api/handlers"
	"github.com/cloo-solutions/sanad/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	SessionHandler *handlers.SessionHandler
	SearchHandler  *handlers.SearchHandler
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", cfg.SessionHandler.Create)
		r.Post("/{id}/turns", cfg.SessionHandler.Turn)
		r.Get("/{id}/messages", cfg.SessionHandler.Messages)
		r.Delete("/{id}", cfg.SessionHandler.Delete)
	})

	r.Post("/search", cfg.SearchHandler.Search)
	r.Get("/index", cfg.SearchHandler.Index)

	return r
}
