package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Catalog locates the movie catalog file.
type Catalog struct {
	Path string `toml:"path"` // Default: <data_dir>/movies.csv
}

// Similarity contains configuration for the precomputed similarity matrix.
type Similarity struct {
	Path              string  `toml:"path"`         // Default: <cache_dir>/similarity.rms
	DownloadURL       string  `toml:"download_url"` // Fetched when Path is missing
	DownloadTimeout   int     `toml:"download_timeout"`
	DownloadRetries   int     `toml:"download_retries"`
	VerifySymmetry    bool    `toml:"verify_symmetry"`
	SymmetryTolerance float64 `toml:"symmetry_tolerance"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	ImageBaseURL      string  `toml:"image_base_url"`
	Language          string  `toml:"language"`
	RequestTimeout    int     `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Posters contains configuration for poster resolution.
type Posters struct {
	PlaceholderURL string `toml:"placeholder_url"`
	Concurrency    int    `toml:"concurrency"`
	FetchTimeout   int    `toml:"fetch_timeout"`
	CacheEnabled   bool   `toml:"cache_enabled"`
	CachePath      string `toml:"cache_path"` // Default: <cache_dir>/posters.db
	CacheTTLHours  int    `toml:"cache_ttl_hours"`
}

// Recommend contains ranking knobs.
type Recommend struct {
	Limit    int `toml:"limit"`
	MaxLimit int `toml:"max_limit"`
}

// API contains HTTP server settings beyond the bind address.
type API struct {
	RequestTimeout     int      `toml:"request_timeout"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	CORSOrigins        []string `toml:"cors_origins"` // Empty disables cross-origin access
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reelmatch.
//
// Configuration sections by subsystem:
//   - Paths: data/cache/log directories and API bind address
//   - Catalog: movie catalog file
//   - Similarity: similarity matrix cache and download source
//   - TMDB: poster metadata via The Movie Database
//   - Posters: placeholder, fan-out, and poster URL cache
//   - Recommend: result limits
//   - API: HTTP server timeouts and rate limits
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Catalog    Catalog    `toml:"catalog"`
	Similarity Similarity `toml:"similarity"`
	TMDB       TMDB       `toml:"tmdb"`
	Posters    Posters    `toml:"posters"`
	Recommend  Recommend  `toml:"recommend"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelmatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelmatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the CLI and API server write into.
// The data directory is only read, so it is left alone.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CacheDir, c.Paths.LogDir, filepath.Dir(c.Similarity.Path)}
	if c.Posters.CacheEnabled && strings.TrimSpace(c.Posters.CachePath) != "" {
		dirs = append(dirs, filepath.Dir(c.Posters.CachePath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DownloadTimeout returns the per-attempt similarity download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Similarity.DownloadTimeout) * time.Second
}

// TMDBTimeout returns the HTTP timeout used for TMDB requests.
func (c *Config) TMDBTimeout() time.Duration {
	return time.Duration(c.TMDB.RequestTimeout) * time.Second
}

// PosterFetchTimeout bounds a single poster resolution, retries included.
func (c *Config) PosterFetchTimeout() time.Duration {
	return time.Duration(c.Posters.FetchTimeout) * time.Second
}

// PosterCacheTTL returns how long a cached poster URL stays fresh. Zero means forever.
func (c *Config) PosterCacheTTL() time.Duration {
	return time.Duration(c.Posters.CacheTTLHours) * time.Hour
}

// APIRequestTimeout bounds a single HTTP API request.
func (c *Config) APIRequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeout) * time.Second
}

// LockPath returns the file used to keep a single API server per cache directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.CacheDir, "reelmatch-serve.lock")
}

// LogPath returns the log file written next to console output.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "reelmatch.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
