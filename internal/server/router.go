package server

import (
	"net/http"
	"time"

	"github.com/cloo-solutions/notewise/internal/api"
	"github.com/cloo-solutions/notewise/internal/api/handlers"
	"github.com/cloo-solutions/notewise/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	APIToken       string
	RequestTimeout time.Duration
	IndexHandler   *handlers.IndexHandler
	ContextHandler *handlers.ContextHandler
	UploadHandler  *handlers.UploadHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = handlers.MaxUploadBytes + 1<<20

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.APIToken))

		r.Route("/documents/{id}", func(r chi.Router) {
			r.Post("/index", cfg.IndexHandler.IndexDocument)
			r.Delete("/index", cfg.IndexHandler.RemoveDocument)
			r.Post("/jobs", cfg.IndexHandler.EnqueueJob)
		})

		r.Get("/jobs/{jobID}", cfg.IndexHandler.GetJob)

		r.Post("/reindex", cfg.IndexHandler.ReindexAll)
		r.Get("/index", cfg.IndexHandler.List)

		r.Post("/context", cfg.ContextHandler.Retrieve)
		r.Post("/chat", cfg.ContextHandler.Chat)

		r.Post("/uploads", cfg.UploadHandler.Upload)
	})

	return r
}
