package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reelmatch/internal/services"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type handlers struct {
	deps      Deps
	logger    *slog.Logger
	startedAt time.Time
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) recommendations(w http.ResponseWriter, r *http.Request) {
	if h.deps.Recommender == nil {
		writeServiceError(w, r, h.logger, services.Wrap(services.ErrUnavailable, "api", "recommend", "recommender not loaded", nil))
		return
	}
	query := r.URL.Query()
	title := strings.TrimSpace(query.Get("title"))
	if title == "" {
		writeServiceError(w, r, h.logger, services.Wrap(services.ErrValidation, "api", "recommend", "title query parameter is required", nil))
		return
	}
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.deps.Recommender.RecommendN(r.Context(), title, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *handlers) movies(w http.ResponseWriter, r *http.Request) {
	if h.deps.Catalog == nil {
		writeServiceError(w, r, h.logger, services.Wrap(services.ErrUnavailable, "api", "search", "catalog not loaded", nil))
		return
	}
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	if q == "" {
		writeServiceError(w, r, h.logger, services.Wrap(services.ErrValidation, "api", "search", "q query parameter is required", nil))
		return
	}
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	matches := h.deps.Catalog.Search(q, limit)
	writeJSON(w, h.logger, http.StatusOK, MoviesResponse{Query: q, Count: len(matches), Movies: matches})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	var payload Status
	if h.deps.Status != nil {
		payload = h.deps.Status(r.Context())
	}
	if payload.StartedAt.IsZero() {
		payload.StartedAt = h.startedAt
	}
	payload.Uptime = time.Since(payload.StartedAt).Truncate(time.Second).String()
	writeJSON(w, h.logger, http.StatusOK, payload)
}

// parseLimit accepts an empty value as zero, meaning the default.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, services.Wrap(services.ErrValidation, "api", "parse limit", "limit must be a non-negative integer", nil)
	}
	return limit, nil
}
