package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeSimilarity(); err != nil {
		return err
	}
	c.normalizeTMDB()
	if err := c.normalizePosters(); err != nil {
		return err
	}
	c.normalizeRecommend()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REELMATCH_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	var err error
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = filepath.Join(c.Paths.DataDir, defaultCatalogFile)
	}
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSimilarity() error {
	var err error
	if strings.TrimSpace(c.Similarity.Path) == "" {
		c.Similarity.Path = filepath.Join(c.Paths.CacheDir, defaultSimilarityFile)
	}
	if c.Similarity.Path, err = expandPath(c.Similarity.Path); err != nil {
		return fmt.Errorf("similarity.path: %w", err)
	}
	c.Similarity.DownloadURL = strings.TrimSpace(c.Similarity.DownloadURL)
	if c.Similarity.DownloadURL == "" {
		if value, ok := os.LookupEnv("REELMATCH_SIMILARITY_URL"); ok {
			c.Similarity.DownloadURL = strings.TrimSpace(value)
		}
	}
	if c.Similarity.DownloadTimeout <= 0 {
		c.Similarity.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Similarity.DownloadRetries < 0 {
		c.Similarity.DownloadRetries = 0
	}
	if c.Similarity.SymmetryTolerance <= 0 {
		c.Similarity.SymmetryTolerance = defaultSymmetryTolerance
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.RequestTimeout <= 0 {
		c.TMDB.RequestTimeout = defaultTMDBRequestTimeout
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = defaultTMDBRequestsPerSecond
	}
	if c.TMDB.Burst <= 0 {
		c.TMDB.Burst = defaultTMDBBurst
	}
}

func (c *Config) normalizePosters() error {
	var err error
	c.Posters.PlaceholderURL = strings.TrimSpace(c.Posters.PlaceholderURL)
	if c.Posters.PlaceholderURL == "" {
		c.Posters.PlaceholderURL = defaultPosterPlaceholderURL
	}
	if c.Posters.Concurrency <= 0 {
		c.Posters.Concurrency = defaultPosterConcurrency
	}
	if c.Posters.FetchTimeout <= 0 {
		c.Posters.FetchTimeout = defaultPosterFetchTimeout
	}
	if c.Posters.CacheTTLHours < 0 {
		c.Posters.CacheTTLHours = 0
	}
	if strings.TrimSpace(c.Posters.CachePath) == "" {
		c.Posters.CachePath = filepath.Join(c.Paths.CacheDir, defaultPosterCacheFile)
	}
	if c.Posters.CachePath, err = expandPath(c.Posters.CachePath); err != nil {
		return fmt.Errorf("posters.cache_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecommend() {
	if c.Recommend.MaxLimit <= 0 {
		c.Recommend.MaxLimit = defaultRecommendMaxLimit
	}
	if c.Recommend.Limit <= 0 {
		c.Recommend.Limit = defaultRecommendLimit
	}
}

func (c *Config) normalizeAPI() {
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultAPIRequestTimeout
	}
	if c.API.RateLimitPerMinute < 0 {
		c.API.RateLimitPerMinute = 0
	}
	origins := c.API.CORSOrigins[:0]
	for _, origin := range c.API.CORSOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.CORSOrigins = origins
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
