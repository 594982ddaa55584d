package api

import (
	"context"
	"time"

	"reelmatch/internal/catalog"
	"reelmatch/internal/recommend"
)

// Recommender produces ranked recommendations. *recommend.Recommender implements it.
type Recommender interface {
	RecommendN(ctx context.Context, title string, limit int) (recommend.Result, error)
}

// Searcher finds catalog titles. *catalog.Catalog implements it.
type Searcher interface {
	Search(query string, limit int) []catalog.Match
}

// StatusFunc reports runtime status for /api/status.
type StatusFunc func(ctx context.Context) Status

// Status describes the loaded data and supporting services.
type Status struct {
	Movies         int               `json:"movies"`
	MatrixPath     string            `json:"matrix_path"`
	MatrixLoaded   bool              `json:"matrix_loaded"`
	TMDBConfigured bool              `json:"tmdb_configured"`
	PosterCache    PosterCacheStatus `json:"poster_cache"`
	StartedAt      time.Time         `json:"started_at"`
	Uptime         string            `json:"uptime"`
}

// PosterCacheStatus summarizes the poster URL cache.
type PosterCacheStatus struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
	Entries int    `json:"entries"`
}

// MoviesResponse is the /api/movies payload.
type MoviesResponse struct {
	Query  string          `json:"query"`
	Count  int             `json:"count"`
	Movies []catalog.Match `json:"movies"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind"`
	RequestID   string   `json:"request_id,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
