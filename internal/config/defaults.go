package config

const (
	defaultDataDir               = "~/.local/share/reelmatch"
	defaultCacheDir              = "~/.cache/reelmatch"
	defaultLogDir                = "~/.local/share/reelmatch/logs"
	defaultLogRetentionDays      = 30
	defaultAPIBind               = "127.0.0.1:7491"
	defaultCatalogFile           = "movies.csv"
	defaultSimilarityFile        = "similarity.rms"
	defaultDownloadTimeout       = 600
	defaultDownloadRetries       = 3
	defaultSymmetryTolerance     = 1e-6
	defaultTMDBBaseURL           = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL      = "https://image.tmdb.org/t/p/w500"
	defaultTMDBLanguage          = "en-US"
	defaultTMDBRequestTimeout    = 10
	defaultTMDBRequestsPerSecond = 20.0
	defaultTMDBBurst             = 10
	defaultPosterPlaceholderURL  = "https://placehold.co/500x750?text=No+Poster"
	defaultPosterConcurrency     = 5
	defaultPosterFetchTimeout    = 5
	defaultPosterCacheFile       = "posters.db"
	defaultPosterCacheTTLHours   = 24 * 7
	defaultRecommendLimit        = 10
	defaultRecommendMaxLimit     = 50
	defaultAPIRequestTimeout     = 30
	defaultAPIRateLimitPerMinute = 120
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults. File paths
// derived from directories (catalog, similarity cache, poster cache) are left
// empty and filled in by normalize once the directories are expanded.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Similarity: Similarity{
			DownloadTimeout:   defaultDownloadTimeout,
			DownloadRetries:   defaultDownloadRetries,
			VerifySymmetry:    true,
			SymmetryTolerance: defaultSymmetryTolerance,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			ImageBaseURL:      defaultTMDBImageBaseURL,
			Language:          defaultTMDBLanguage,
			RequestTimeout:    defaultTMDBRequestTimeout,
			RequestsPerSecond: defaultTMDBRequestsPerSecond,
			Burst:             defaultTMDBBurst,
		},
		Posters: Posters{
			PlaceholderURL: defaultPosterPlaceholderURL,
			Concurrency:    defaultPosterConcurrency,
			FetchTimeout:   defaultPosterFetchTimeout,
			CacheEnabled:   true,
			CacheTTLHours:  defaultPosterCacheTTLHours,
		},
		Recommend: Recommend{
			Limit:    defaultRecommendLimit,
			MaxLimit: defaultRecommendMaxLimit,
		},
		API: API{
			RequestTimeout:     defaultAPIRequestTimeout,
			RateLimitPerMinute: defaultAPIRateLimitPerMinute,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
