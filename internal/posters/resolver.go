// Package posters resolves poster image URLs for recommended movies. Each
// lookup goes through the poster URL cache, then TMDB, and degrades to a
// placeholder image when neither produces a URL.
package posters

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"reelmatch/internal/logging"
	"reelmatch/internal/metrics"
	"reelmatch/internal/retry"
	"reelmatch/internal/services"
	"reelmatch/internal/tmdb"
)

const (
	defaultConcurrency  = 5
	defaultFetchTimeout = 5 * time.Second
)

// Source values report where a poster URL came from.
const (
	SourceCache       = "cache"
	SourceTMDB        = "tmdb"
	SourcePlaceholder = "placeholder"
)

// MovieFetcher loads movie details. *tmdb.Client implements it.
type MovieFetcher interface {
	GetMovie(ctx context.Context, id int64) (*tmdb.Movie, error)
}

// URLCache stores resolved poster URLs. *postercache.Cache implements it.
type URLCache interface {
	Lookup(ctx context.Context, movieID int64) (string, bool, error)
	Store(ctx context.Context, movieID int64, url string) error
}

// Poster is the outcome of resolving one movie.
type Poster struct {
	MovieID     int64  `json:"movie_id"`
	URL         string `json:"url"`
	Placeholder bool   `json:"placeholder"`
	Source      string `json:"source"`
	Err         error  `json:"-"`
}

// Options configures a Resolver.
type Options struct {
	ImageBaseURL   string
	PlaceholderURL string
	Concurrency    int
	// FetchTimeout bounds one movie's resolution, retries included.
	FetchTimeout time.Duration
	Retry        retry.Policy
	Cache        URLCache
	Logger       *slog.Logger
}

// Resolver turns movie IDs into poster URLs.
type Resolver struct {
	fetcher     MovieFetcher
	cache       URLCache
	imageBase   string
	placeholder string
	concurrency int
	timeout     time.Duration
	policy      retry.Policy
	logger      *slog.Logger
}

// New builds a resolver. A nil fetcher resolves only from the cache and
// otherwise returns placeholders, which is how reelmatch runs without a TMDB key.
func New(fetcher MovieFetcher, opts Options) *Resolver {
	r := &Resolver{
		fetcher:     fetcher,
		cache:       opts.Cache,
		imageBase:   opts.ImageBaseURL,
		placeholder: opts.PlaceholderURL,
		concurrency: opts.Concurrency,
		timeout:     opts.FetchTimeout,
		policy:      opts.Retry,
		logger:      logging.NewComponentLogger(opts.Logger, "posters"),
	}
	if r.concurrency <= 0 {
		r.concurrency = defaultConcurrency
	}
	if r.timeout <= 0 {
		r.timeout = defaultFetchTimeout
	}
	return r
}

// Placeholder returns the fallback image URL.
func (r *Resolver) Placeholder() string { return r.placeholder }

// FetchPoster resolves one movie's poster URL. Failures carry
// services.ErrPosterUnavailable.
func (r *Resolver) FetchPoster(ctx context.Context, movieID int64) (string, error) {
	url, _, err := r.fetch(ctx, movieID)
	return url, err
}

func (r *Resolver) fetch(ctx context.Context, movieID int64) (string, string, error) {
	logger := logging.WithContext(ctx, r.logger)
	if r.cache != nil {
		url, ok, err := r.cache.Lookup(ctx, movieID)
		if err != nil {
			logger.Debug("poster cache lookup failed", logging.Int64(logging.FieldMovieID, movieID), logging.Error(err))
		} else if ok {
			return url, SourceCache, nil
		}
	}
	if r.fetcher == nil {
		return "", "", services.Wrap(services.ErrPosterUnavailable, "posters", "fetch", "no TMDB client configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var movie *tmdb.Movie
	err := retry.Do(ctx, r.policy, logger, "poster_fetch_retry", func(ctx context.Context) error {
		m, err := r.fetcher.GetMovie(ctx, movieID)
		if err != nil {
			return err
		}
		movie = m
		return nil
	})
	if err != nil {
		if !errors.Is(err, services.ErrPosterUnavailable) {
			err = services.Wrap(services.ErrPosterUnavailable, "posters", "fetch", "", err)
		}
		return "", "", err
	}
	url := tmdb.ImageURL(r.imageBase, movie.PosterPath)
	if url == "" {
		return "", "", services.Wrap(services.ErrPosterUnavailable, "posters", "fetch", "empty poster path", nil)
	}
	if r.cache != nil {
		if err := r.cache.Store(ctx, movieID, url); err != nil {
			logger.Debug("poster cache store failed", logging.Int64(logging.FieldMovieID, movieID), logging.Error(err))
		}
	}
	return url, SourceTMDB, nil
}

// ResolveAll resolves every ID concurrently, at most Concurrency at a time,
// and returns results in input order. A failed entry gets the placeholder URL
// and keeps its error in Poster.Err; the batch itself never fails.
func (r *Resolver) ResolveAll(ctx context.Context, ids []int64) []Poster {
	results := make([]Poster, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for i, id := range ids {
		group.Go(func() error {
			results[i] = r.resolveOne(groupCtx, id)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (r *Resolver) resolveOne(ctx context.Context, movieID int64) Poster {
	url, source, err := r.fetch(ctx, movieID)
	if err == nil {
		metrics.RecordPosterLookup(source)
		return Poster{MovieID: movieID, URL: url, Source: source}
	}
	metrics.RecordPosterLookup(SourcePlaceholder)
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "poster unavailable; using placeholder", "poster_fallback",
		logging.Int64(logging.FieldMovieID, movieID),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check tmdb.api_key and TMDB availability"),
		logging.String(logging.FieldImpact, "placeholder image shown for this movie"),
	)
	return Poster{MovieID: movieID, URL: r.placeholder, Placeholder: true, Source: SourcePlaceholder, Err: err}
}
