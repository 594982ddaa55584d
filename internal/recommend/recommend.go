// Package recommend ranks catalog movies by similarity to a chosen title and
// attaches poster URLs to the top results.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"reelmatch/internal/catalog"
	"reelmatch/internal/dataset"
	"reelmatch/internal/logging"
	"reelmatch/internal/metrics"
	"reelmatch/internal/posters"
	"reelmatch/internal/services"
)

// DefaultLimit is the number of recommendations returned when no limit is given.
const DefaultLimit = 10

const suggestionCount = 5

// PosterResolver turns movie IDs into poster URLs, in input order, never failing
// the whole batch. *posters.Resolver implements it.
type PosterResolver interface {
	ResolveAll(ctx context.Context, ids []int64) []posters.Poster
}

// Ranked is one candidate after ranking, before poster resolution.
type Ranked struct {
	Index int
	Movie catalog.Movie
	Score float32
	Rank  int
}

// Recommendation is one entry of a result.
type Recommendation struct {
	Rank              int           `json:"rank"`
	Movie             catalog.Movie `json:"movie"`
	Score             float32       `json:"score"`
	PosterURL         string        `json:"poster_url,omitempty"`
	PosterPlaceholder bool          `json:"poster_placeholder,omitempty"`
}

// Result is an ordered recommendation list for one query title.
type Result struct {
	Query           catalog.Movie    `json:"query"`
	Recommendations []Recommendation `json:"recommendations"`
}

// UnknownTitleError reports a title that is not in the catalog. It matches
// services.ErrNotFound under errors.Is.
type UnknownTitleError struct {
	Title       string
	Suggestions []string
}

func (e *UnknownTitleError) Error() string {
	msg := fmt.Sprintf("not found: movie %q is not in the catalog", e.Title)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean: " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

func (e *UnknownTitleError) Unwrap() error { return services.ErrNotFound }

// Recommender answers recommendation queries over an injected dataset.
type Recommender struct {
	data     *dataset.Dataset
	posters  PosterResolver
	limit    int
	maxLimit int
	logger   *slog.Logger
}

// Option customizes a Recommender.
type Option func(*Recommender)

// WithLimit sets the default number of results.
func WithLimit(limit int) Option {
	return func(r *Recommender) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// WithMaxLimit caps limits requested per call.
func WithMaxLimit(limit int) Option {
	return func(r *Recommender) {
		if limit > 0 {
			r.maxLimit = limit
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recommender) {
		r.logger = logger
	}
}

// New builds a recommender. A nil poster resolver leaves poster URLs empty.
func New(data *dataset.Dataset, resolver PosterResolver, opts ...Option) *Recommender {
	r := &Recommender{data: data, posters: resolver, limit: DefaultLimit}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxLimit > 0 && r.limit > r.maxLimit {
		r.limit = r.maxLimit
	}
	r.logger = logging.NewComponentLogger(r.logger, "recommend")
	return r
}

// Dataset exposes the injected data for status reporting.
func (r *Recommender) Dataset() *dataset.Dataset { return r.data }

// Rank resolves title to its first exact catalog match and returns up to limit
// other movies ordered by score descending, then catalog index ascending. The
// query movie is excluded by index, so a tie with its self-score cannot let it
// through. NaN scores rank last. A limit of zero or less uses the default.
func (r *Recommender) Rank(title string, limit int) ([]Ranked, error) {
	idx, ok := r.data.Catalog.IndexOf(title)
	if !ok {
		return nil, &UnknownTitleError{Title: title, Suggestions: r.data.Catalog.Suggest(title, suggestionCount)}
	}
	limit = r.effectiveLimit(limit)

	row := r.data.Matrix.RowView(idx)
	candidates := make([]Ranked, 0, len(row)-1)
	for j, score := range row {
		if j == idx {
			continue
		}
		candidates = append(candidates, Ranked{Index: j, Score: score})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return scoreBefore(candidates[a].Score, candidates[b].Score)
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	ranked := candidates[:limit:limit]
	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].Movie = r.data.Catalog.At(ranked[i].Index)
	}
	return ranked, nil
}

// scoreBefore orders higher scores first and NaN after every number.
func scoreBefore(a, b float32) bool {
	aNaN, bNaN := math.IsNaN(float64(a)), math.IsNaN(float64(b))
	switch {
	case aNaN:
		return false
	case bNaN:
		return true
	default:
		return a > b
	}
}

func (r *Recommender) effectiveLimit(limit int) int {
	if limit <= 0 {
		limit = r.limit
	}
	if r.maxLimit > 0 && limit > r.maxLimit {
		limit = r.maxLimit
	}
	return limit
}

// Recommend ranks with the default limit and resolves posters.
func (r *Recommender) Recommend(ctx context.Context, title string) (Result, error) {
	return r.RecommendN(ctx, title, 0)
}

// RecommendN ranks up to limit movies and resolves a poster for each. Poster
// failures degrade to placeholders; only an unknown title fails the call.
func (r *Recommender) RecommendN(ctx context.Context, title string, limit int) (Result, error) {
	start := time.Now()
	logger := logging.WithContext(ctx, r.logger)

	ranked, err := r.Rank(title, limit)
	if err != nil {
		metrics.RecordRecommendation(time.Since(start), err)
		logger.Info("unknown title requested",
			logging.String(logging.FieldTitle, title),
			logging.String(logging.FieldEventType, "recommend_not_found"),
		)
		return Result{}, err
	}

	queryIdx, _ := r.data.Catalog.IndexOf(title)
	result := Result{
		Query:           r.data.Catalog.At(queryIdx),
		Recommendations: make([]Recommendation, len(ranked)),
	}
	for i, item := range ranked {
		result.Recommendations[i] = Recommendation{Rank: item.Rank, Movie: item.Movie, Score: item.Score}
	}

	if r.posters != nil && len(ranked) > 0 {
		ids := make([]int64, len(ranked))
		for i, item := range ranked {
			ids[i] = item.Movie.ID
		}
		for i, poster := range r.posters.ResolveAll(ctx, ids) {
			if i >= len(result.Recommendations) {
				break
			}
			result.Recommendations[i].PosterURL = poster.URL
			result.Recommendations[i].PosterPlaceholder = poster.Placeholder
		}
	}

	elapsed := time.Since(start)
	metrics.RecordRecommendation(elapsed, nil)
	logger.Info("recommendations served",
		logging.String(logging.FieldTitle, title),
		logging.Int("results", len(result.Recommendations)),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "recommend_completed"),
	)
	return result, nil
}
