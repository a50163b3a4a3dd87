package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
)

// Routes is anything that mounts handlers on a router.
type Routes interface {
	RegisterRoutes(router chi.Router)
}

type RouterConfig struct {
	Sessions       session.Store
	CookieName     string
	RequestTimeout time.Duration
	Health         *HealthHandler
	API            []Routes
}

// NewRouter assembles the middleware stack and mounts the API under /api.
func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger)
	router.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(router)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(Identify(cfg.Sessions, cfg.CookieName))
		for _, h := range cfg.API {
			h.RegisterRoutes(r)
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}
