package api

import (
	"log/slog"
	"net/http"

	"spark-ws/internal/api/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	// Browser origins allowed by CORS. Empty allows any origin.
	AllowedOrigins []string
	// Shared secret for POST /api/events. Empty disables the route.
	IngestToken string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(log *slog.Logger, hub Gateway, socket http.Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := NewHandler(hub, log)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)
	r.Handle("/ws", socket)

	r.Get("/api/presence/{userId}", h.Presence)

	if opts.IngestToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBearer(opts.IngestToken))
			r.Post("/api/events", h.PublishEvent)
		})
	} else {
		log.Info("[API] INGEST_TOKEN not set, POST /api/events disabled")
	}

	return r
}
