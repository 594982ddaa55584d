package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSimilarity(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validatePosters(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSimilarity() error {
	if c.Similarity.DownloadURL != "" {
		if err := validateHTTPURL(c.Similarity.DownloadURL); err != nil {
			return fmt.Errorf("similarity.download_url: %w", err)
		}
	}
	if c.Similarity.SymmetryTolerance >= 1 {
		return errors.New("similarity.symmetry_tolerance must be below 1")
	}
	if c.Similarity.DownloadRetries > 10 {
		return errors.New("similarity.download_retries must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if err := validateHTTPURL(c.TMDB.BaseURL); err != nil {
		return fmt.Errorf("tmdb.base_url: %w", err)
	}
	if err := validateHTTPURL(c.TMDB.ImageBaseURL); err != nil {
		return fmt.Errorf("tmdb.image_base_url: %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"tmdb.request_timeout": c.TMDB.RequestTimeout,
		"tmdb.burst":           c.TMDB.Burst,
	})
}

func (c *Config) validatePosters() error {
	if err := validateHTTPURL(c.Posters.PlaceholderURL); err != nil {
		return fmt.Errorf("posters.placeholder_url: %w", err)
	}
	if c.Posters.Concurrency > 32 {
		return errors.New("posters.concurrency must be 32 or fewer")
	}
	if c.Posters.CacheEnabled && strings.TrimSpace(c.Posters.CachePath) == "" {
		return errors.New("posters.cache_path must be set when posters.cache_enabled is true")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.Limit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.limit (%d) must not exceed recommend.max_limit (%d)", c.Recommend.Limit, c.Recommend.MaxLimit)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q (use debug, info, warn, or error)", c.Logging.Level)
	}
}

func validateHTTPURL(value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
