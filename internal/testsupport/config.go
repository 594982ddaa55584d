// Package testsupport builds configs and on-disk fixtures for tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"reelmatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// TMDB is left without a key so nothing reaches the network by default.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Catalog.Path = filepath.Join(cfgVal.Paths.DataDir, "movies.csv")
	cfgVal.Similarity.Path = filepath.Join(cfgVal.Paths.CacheDir, "similarity.rms")
	cfgVal.Posters.CachePath = filepath.Join(cfgVal.Paths.CacheDir, "posters.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithTMDB points the TMDB client at baseURL with the given key.
func WithTMDB(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = baseURL
		b.cfg.TMDB.APIKey = key
	}
}

// WithSimilarityURL sets the matrix download URL.
func WithSimilarityURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Similarity.DownloadURL = url
	}
}

// WithoutPosterCache disables the SQLite poster URL cache.
func WithoutPosterCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Posters.CacheEnabled = false
		b.cfg.Posters.CachePath = ""
	}
}

// WithAPIToken requires bearer auth on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
