package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelmatch/internal/api"
	"reelmatch/internal/config"
	"reelmatch/internal/dataset"
	"reelmatch/internal/logging"
	"reelmatch/internal/postercache"
	"reelmatch/internal/posters"
	"reelmatch/internal/recommend"
	"reelmatch/internal/retry"
	"reelmatch/internal/services"
	"reelmatch/internal/similarity"
	"reelmatch/internal/tmdb"
)

// app holds the services a command needs, built once from config.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *similarity.Store
	data        *dataset.Dataset
	cache       *postercache.Cache
	recommender *recommend.Recommender
	tmdbReady   bool
}

type appOptions struct {
	posters bool
}

func newSimilarityStore(cfg *config.Config, logger *slog.Logger) *similarity.Store {
	return similarity.NewStore(similarity.Options{
		Path:            cfg.Similarity.Path,
		DownloadURL:     cfg.Similarity.DownloadURL,
		DownloadTimeout: cfg.DownloadTimeout(),
		Retry: retry.Policy{
			MaxRetries:     cfg.Similarity.DownloadRetries,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Logger: logger,
	})
}

func openPosterCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*postercache.Cache, error) {
	path := ""
	if cfg.Posters.CacheEnabled {
		path = cfg.Posters.CachePath
	}
	return postercache.Open(ctx, path, postercache.Options{TTL: cfg.PosterCacheTTL(), Logger: logger})
}

// openApp loads the catalog and similarity matrix and wires the recommender.
// A dataset that cannot be loaded is fatal; a missing TMDB key only degrades
// posters to the placeholder.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger, store: newSimilarityStore(cfg, logger)}

	data, err := dataset.Open(ctx, cfg.Catalog.Path, a.store, dataset.Options{
		VerifySymmetry:    cfg.Similarity.VerifySymmetry,
		SymmetryTolerance: cfg.Similarity.SymmetryTolerance,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	a.data = data

	var resolver recommend.PosterResolver
	if opts.posters {
		cache, err := openPosterCache(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open poster cache: %w", err)
		}
		a.cache = cache
		resolver = a.newResolver(cache)
	}

	a.recommender = recommend.New(data, resolver,
		recommend.WithLimit(cfg.Recommend.Limit),
		recommend.WithMaxLimit(cfg.Recommend.MaxLimit),
		recommend.WithLogger(logger),
	)
	return a, nil
}

func (a *app) newResolver(cache *postercache.Cache) *posters.Resolver {
	var fetcher posters.MovieFetcher
	client, err := tmdb.New(a.cfg.TMDB.APIKey, a.cfg.TMDB.BaseURL, a.cfg.TMDB.Language,
		tmdb.WithTimeout(a.cfg.TMDBTimeout()),
		tmdb.WithRateLimit(a.cfg.TMDB.RequestsPerSecond, a.cfg.TMDB.Burst),
		tmdb.WithLogger(a.logger),
	)
	switch {
	case err == nil:
		fetcher = client
		a.tmdbReady = true
	case errors.Is(err, services.ErrConfiguration):
		logging.WarnWithContext(a.logger, "tmdb client disabled", "tmdb_disabled",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set tmdb.api_key or export TMDB_API_KEY"),
			logging.String(logging.FieldImpact, "every poster uses the placeholder image"),
		)
	default:
		logging.WarnWithContext(a.logger, "tmdb client unavailable", "tmdb_disabled", logging.Error(err))
	}

	return posters.New(fetcher, posters.Options{
		ImageBaseURL:   a.cfg.TMDB.ImageBaseURL,
		PlaceholderURL: a.cfg.Posters.PlaceholderURL,
		Concurrency:    a.cfg.Posters.Concurrency,
		FetchTimeout:   a.cfg.PosterFetchTimeout(),
		Retry:          retry.DefaultPolicy,
		Cache:          cache,
		Logger:         a.logger,
	})
}

// status summarizes the loaded data for /api/status.
func (a *app) status(ctx context.Context) api.Status {
	st := api.Status{
		Movies:         a.data.Len(),
		MatrixPath:     a.store.Path(),
		MatrixLoaded:   a.store.Loaded(),
		TMDBConfigured: a.tmdbReady,
	}
	if a.cache != nil {
		st.PosterCache = api.PosterCacheStatus{Enabled: a.cache.Enabled(), Path: a.cache.Path()}
		if count, err := a.cache.Count(ctx); err == nil {
			st.PosterCache.Entries = count
		}
	}
	return st
}

func (a *app) Close() error {
	if a == nil || a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
