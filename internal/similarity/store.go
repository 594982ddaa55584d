package similarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"reelmatch/internal/logging"
	"reelmatch/internal/metrics"
	"reelmatch/internal/retry"
	"reelmatch/internal/services"
)

const (
	defaultDownloadTimeout = 10 * time.Minute
	lockRetryDelay         = 250 * time.Millisecond
)

// Options configures a Store.
type Options struct {
	// Path is the local cache file. It is downloaded when missing.
	Path            string
	DownloadURL     string
	DownloadTimeout time.Duration
	Retry           retry.Policy
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Store makes the similarity matrix available once per process. Concurrent
// callers share a single download and parse, and a file lock keeps separate
// processes from downloading into the same path at once.
type Store struct {
	path        string
	downloadURL string
	timeout     time.Duration
	policy      retry.Policy
	client      *http.Client
	logger      *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	matrix *Matrix
	loads  atomic.Int64
}

// NewStore constructs a store. Nothing is read until Load is called.
func NewStore(opts Options) *Store {
	timeout := opts.DownloadTimeout
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Store{
		path:        strings.TrimSpace(opts.Path),
		downloadURL: strings.TrimSpace(opts.DownloadURL),
		timeout:     timeout,
		policy:      opts.Retry,
		client:      client,
		logger:      logging.NewComponentLogger(opts.Logger, "similarity"),
	}
}

// Path returns the local cache file location.
func (s *Store) Path() string { return s.path }

// Loaded reports whether the matrix is already in memory.
func (s *Store) Loaded() bool {
	return s.cached() != nil
}

// Loads returns how many times the matrix was read from disk or downloaded.
func (s *Store) Loads() int64 { return s.loads.Load() }

// Load returns the matrix, reading or downloading it on first use. A failed
// load is not remembered, so the next call tries again. Failures carry
// services.ErrUnavailable.
func (s *Store) Load(ctx context.Context) (*Matrix, error) {
	if m := s.cached(); m != nil {
		return m, nil
	}
	return s.shared(ctx, false)
}

// Refresh downloads the matrix again, replacing the local file and the
// in-memory copy once the new file decodes cleanly.
func (s *Store) Refresh(ctx context.Context) (*Matrix, error) {
	return s.shared(ctx, true)
}

func (s *Store) shared(ctx context.Context, force bool) (*Matrix, error) {
	key := "load"
	if force {
		key = "refresh"
	}
	// The shared load must outlive any single caller's cancellation.
	ch := s.group.DoChan(key, func() (any, error) {
		if !force {
			if m := s.cached(); m != nil {
				return m, nil
			}
		}
		return s.load(context.WithoutCancel(ctx), force)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Matrix), nil
	}
}

func (s *Store) cached() *Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix
}

func (s *Store) load(ctx context.Context, force bool) (*Matrix, error) {
	if s.path == "" {
		return nil, services.Wrap(services.ErrUnavailable, "similarity", "load", "no matrix path configured", nil)
	}
	start := time.Now()
	source := "disk"

	matrix, err := s.readLocal()
	if force || errors.Is(err, fs.ErrNotExist) {
		source = "download"
		matrix, err = s.fetchLocked(ctx, force)
	}
	metrics.RecordSimilarityLoad(source, time.Since(start), err)
	if err != nil {
		logging.ErrorWithContext(s.logger, "similarity matrix unavailable", "similarity_load_failed",
			logging.String("path", s.path),
			logging.String("source", source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check similarity.download_url or place the matrix file at similarity.path"),
		)
		if errors.Is(err, services.ErrUnavailable) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrUnavailable, "similarity", "load", source, err)
	}

	s.loads.Add(1)
	s.mu.Lock()
	s.matrix = matrix
	s.mu.Unlock()
	s.logger.Info("similarity matrix ready",
		logging.String("source", source),
		logging.Int("movies", matrix.Size()),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "similarity_loaded"),
	)
	return matrix, nil
}

func (s *Store) readLocal() (*Matrix, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	matrix, err := DecodeFile(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return matrix, nil
}

// fetchLocked downloads under an exclusive file lock. Another process may
// have finished the download while this one waited, so the file is checked
// again once the lock is held.
func (s *Store) fetchLocked(ctx context.Context, force bool) (*Matrix, error) {
	if s.downloadURL == "" {
		return nil, services.Wrap(services.ErrUnavailable, "similarity", "download",
			fmt.Sprintf("%s is missing and no download_url is configured", s.path), nil)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create matrix directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock matrix file: %w", err)
	}
	if !locked {
		return nil, errors.New("lock matrix file: not acquired")
	}
	defer func() { _ = lock.Unlock() }()

	if !force {
		if matrix, err := s.readLocal(); err == nil {
			s.logger.Debug("matrix downloaded by another process", logging.String("path", s.path))
			return matrix, nil
		}
	}

	var matrix *Matrix
	err = retry.Do(ctx, s.policy, s.logger, "similarity_download_retry", func(ctx context.Context) error {
		m, err := s.download(ctx)
		if err != nil {
			return err
		}
		matrix = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matrix, nil
}

// download streams the remote file into a temp file next to the cache path,
// decodes it, and only then renames it into place.
func (s *Store) download(ctx context.Context) (*Matrix, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Info("downloading similarity matrix",
		logging.String("url", s.downloadURL),
		logging.String("path", s.path),
		logging.String(logging.FieldEventType, "similarity_download_started"),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download matrix: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrUnavailable
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "similarity", "download", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("download matrix: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	matrix, err := DecodeFile(tmp)
	tmp.Close()
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "similarity", "download", "downloaded file is not a matrix", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return nil, fmt.Errorf("replace matrix file: %w", err)
	}
	committed = true

	s.logger.Info("similarity matrix downloaded",
		logging.String("path", s.path),
		logging.Int64("bytes", written),
		logging.String(logging.FieldEventType, "similarity_download_completed"),
	)
	return matrix, nil
}

// WriteFile encodes m to path through a temp file and rename.
func WriteFile(path string, m *Matrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if err := Encode(tmp, m); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
