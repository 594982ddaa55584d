// Package postercache persists resolved poster URLs in SQLite so repeat
// recommendations skip TMDB. Only URLs are stored, never image bytes.
package postercache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelmatch/internal/logging"
)

// Entry is one cached poster URL.
type Entry struct {
	MovieID   int64     `json:"movie_id"`
	PosterURL string    `json:"poster_url"`
	CachedAt  time.Time `json:"cached_at"`
}

// ErrNotCached is returned by Remove for an unknown movie ID.
var ErrNotCached = errors.New("movie not in poster cache")

// Cache is a SQLite-backed poster URL cache. A Cache opened with an empty
// path is disabled: lookups miss and writes are dropped.
type Cache struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// Options configures Open.
type Options struct {
	// TTL bounds how long an entry is served. Zero keeps entries forever.
	TTL    time.Duration
	Logger *slog.Logger
}

// Open creates or connects to the cache database and applies migrations.
func Open(ctx context.Context, path string, opts Options) (*Cache, error) {
	c := &Cache{
		path:   strings.TrimSpace(path),
		ttl:    opts.TTL,
		logger: logging.NewComponentLogger(opts.Logger, "postercache"),
		now:    time.Now,
	}
	if c.path == "" {
		return c, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return nil, fmt.Errorf("create poster cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", c.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	c.db = db
	if err := c.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Enabled reports whether the cache persists anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.db != nil
}

// Path returns the database location.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.db.Close()
}

// Lookup returns the cached URL for movieID if present and within the TTL.
func (c *Cache) Lookup(ctx context.Context, movieID int64) (string, bool, error) {
	if !c.Enabled() {
		return "", false, nil
	}
	var url, cachedAt string
	err := c.db.QueryRowContext(ctx, "SELECT poster_url, cached_at FROM posters WHERE movie_id = ?", movieID).Scan(&url, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup poster %d: %w", movieID, err)
	}
	if c.ttl > 0 {
		ts, err := time.Parse(time.RFC3339Nano, cachedAt)
		if err != nil || c.now().Sub(ts) > c.ttl {
			return "", false, nil
		}
	}
	return url, true, nil
}

// Store records url for movieID, replacing any previous entry.
func (c *Cache) Store(ctx context.Context, movieID int64, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("poster url cannot be empty")
	}
	if !c.Enabled() {
		return nil
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO posters (movie_id, poster_url, cached_at) VALUES (?, ?, ?)
         ON CONFLICT(movie_id) DO UPDATE SET poster_url = excluded.poster_url, cached_at = excluded.cached_at`,
		movieID, url, c.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store poster %d: %w", movieID, err)
	}
	c.logger.Debug("cached poster url", logging.Int64(logging.FieldMovieID, movieID))
	return nil
}

// Remove deletes the entry for movieID.
func (c *Cache) Remove(ctx context.Context, movieID int64) error {
	if !c.Enabled() {
		return nil
	}
	res, err := c.db.ExecContext(ctx, "DELETE FROM posters WHERE movie_id = ?", movieID)
	if err != nil {
		return fmt.Errorf("remove poster %d: %w", movieID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotCached, movieID)
	}
	return nil
}

// List returns all entries, newest first. Expired entries are included.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	if !c.Enabled() {
		return nil, nil
	}
	rows, err := c.db.QueryContext(ctx, "SELECT movie_id, poster_url, cached_at FROM posters ORDER BY cached_at DESC, movie_id ASC")
	if err != nil {
		return nil, fmt.Errorf("list posters: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var cachedAt string
		if err := rows.Scan(&entry.MovieID, &entry.PosterURL, &cachedAt); err != nil {
			return nil, fmt.Errorf("scan poster: %w", err)
		}
		entry.CachedAt, _ = time.Parse(time.RFC3339Nano, cachedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear removes every entry and returns how many were deleted.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, "DELETE FROM posters")
	if err != nil {
		return 0, fmt.Errorf("clear posters: %w", err)
	}
	n, _ := res.RowsAffected()
	c.logger.Debug("cleared poster cache", logging.Int64("removed", n))
	return n, nil
}

// Count returns the number of stored entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM posters").Scan(&count); err != nil {
		return 0, fmt.Errorf("count posters: %w", err)
	}
	return count, nil
}
