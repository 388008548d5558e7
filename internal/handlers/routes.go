package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig tunes the middleware stack.
type RouteConfig struct {
	CORSOrigins []string
	// RecommendPerMinute limits POST /recommend per client IP; zero disables
	// the limit.
	RecommendPerMinute int
}

// DefaultRouteConfig allows any origin and 60 recommendations a minute.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{CORSOrigins: []string{"*"}, RecommendPerMinute: 60}
}

// Routes mounts the API on a chi router.
func (h *Handler) Routes(cfg RouteConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthcheck", h.HandleHealthcheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Metrics)
		r.Get("/books", h.HandleBooks)
		r.Get("/books/", h.HandleBooks)

		if cfg.RecommendPerMinute > 0 {
			r.With(httprate.LimitByIP(cfg.RecommendPerMinute, time.Minute)).Post("/recommend", h.HandleRecommend)
		} else {
			r.Post("/recommend", h.HandleRecommend)
		}
	})
	return r
}
