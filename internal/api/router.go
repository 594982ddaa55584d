package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reelmatch/internal/logging"
)

// Deps are the services the HTTP handlers call.
type Deps struct {
	Recommender Recommender
	Catalog     Searcher
	Status      StatusFunc
}

// RouterOptions configure middleware.
type RouterOptions struct {
	Token              string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	CORSOrigins        []string
	Logger             *slog.Logger
}

// NewRouter builds the chi router serving every route.
func NewRouter(deps Deps, opts RouterOptions) http.Handler {
	logger := logging.NewComponentLogger(opts.Logger, "api")
	h := &handlers{deps: deps, logger: logger, startedAt: time.Now()}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(opts.CORSOrigins))
	r.Use(instrument(logger))

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(opts.RateLimitPerMinute, logger))
		r.Use(bearerAuth(opts.Token, logger))
		if opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(opts.RequestTimeout))
		}
		r.Get("/recommendations", h.recommendations)
		r.Get("/movies", h.movies)
		r.Get("/status", h.status)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, logger, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, logger, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}
