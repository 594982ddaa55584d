package similarity_test

import (
	"bytes"
	"encoding/binary"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelmatch/internal/logging"
	"reelmatch/internal/retry"
	"reelmatch/internal/services"
	"reelmatch/internal/similarity"
)

func encodedMatrix(t *testing.T, rows [][]float32) []byte {
	t.Helper()
	m, err := similarity.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	var buf bytes.Buffer
	if err := similarity.Encode(&buf, m); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf.Bytes()
}

var identity2 = [][]float32{{1, 0.4}, {0.4, 1}}

func TestStoreLoadsExistingFileWithoutDownloading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.rms")
	if err := os.WriteFile(path, encodedMatrix(t, identity2), 0o644); err != nil {
		t.Fatalf("write matrix: %v", err)
	}
	store := similarity.NewStore(similarity.Options{Path: path, DownloadURL: "http://127.0.0.1:1/unused", Logger: logging.NewNop()})

	m, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Size() != 2 || !store.Loaded() {
		t.Fatalf("unexpected state: size=%d loaded=%v", m.Size(), store.Loaded())
	}
}

func TestStoreDownloadsOnceForConcurrentCallers(t *testing.T) {
	payload := encodedMatrix(t, identity2)
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "cache", "similarity.rms")
	store := similarity.NewStore(similarity.Options{Path: path, DownloadURL: server.URL, HTTPClient: server.Client()})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*similarity.Matrix, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Load(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d received a different matrix instance", i)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected exactly one download, got %d", got)
	}
	if store.Loads() != 1 {
		t.Fatalf("expected one load, got %d", store.Loads())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected matrix persisted at %s: %v", path, err)
	}

	// Later calls are served from memory.
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected no further downloads, got %d", got)
	}
}

func TestStoreRetriesTransientDownloadFailures(t *testing.T) {
	payload := encodedMatrix(t, identity2)
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	store := similarity.NewStore(similarity.Options{
		Path:        filepath.Join(t.TempDir(), "similarity.rms"),
		DownloadURL: server.URL,
		Retry:       retry.Policy{MaxRetries: 2, InitialBackoff: time.Millisecond},
	})
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestStoreFailedLoadIsNotMemoized(t *testing.T) {
	payload := encodedMatrix(t, identity2)
	var available atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !available.Load() {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "similarity.rms")
	store := similarity.NewStore(similarity.Options{Path: path, DownloadURL: server.URL})

	_, err := store.Load(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if store.Loaded() {
		t.Fatal("failed load must not be cached")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("failed download must not leave a cache file, stat err=%v", err)
	}

	available.Store(true)
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("expected retry after failure to succeed: %v", err)
	}
}

func TestStoreRejectsCorruptDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>quota exceeded</html>"))
	}))
	defer server.Close()

	dir := t.TempDir()
	store := similarity.NewStore(similarity.Options{Path: filepath.Join(dir, "similarity.rms"), DownloadURL: server.URL})
	if _, err := store.Load(context.Background()); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" || entry.Name() == "similarity.rms" {
			t.Fatalf("unexpected leftover file %s", entry.Name())
		}
	}
}

func TestStoreRejectsHeaderOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.rms")
	header := encodedMatrix(t, identity2)[:12]
	binary.LittleEndian.PutUint32(header[8:], similarity.MaxSize)
	if err := os.WriteFile(path, header, 0o644); err != nil {
		t.Fatalf("write matrix: %v", err)
	}
	store := similarity.NewStore(similarity.Options{Path: path, Logger: logging.NewNop()})

	_, err := store.Load(context.Background())
	if !errors.Is(err, services.ErrUnavailable) || !errors.Is(err, similarity.ErrBadFormat) {
		t.Fatalf("expected unavailable bad-format error, got %v", err)
	}
	if store.Loaded() {
		t.Fatal("a rejected file must not be memoized")
	}
}

func TestStoreWithoutDownloadURLIsUnavailable(t *testing.T) {
	store := similarity.NewStore(similarity.Options{Path: filepath.Join(t.TempDir(), "missing.rms")})
	if _, err := store.Load(context.Background()); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestStoreRefreshReplacesMatrix(t *testing.T) {
	var version atomic.Int32
	first := encodedMatrix(t, identity2)
	second := encodedMatrix(t, [][]float32{{1, 0.1, 0.2}, {0.1, 1, 0.3}, {0.2, 0.3, 1}})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if version.Load() == 0 {
			_, _ = w.Write(first)
			return
		}
		_, _ = w.Write(second)
	}))
	defer server.Close()

	store := similarity.NewStore(similarity.Options{Path: filepath.Join(t.TempDir(), "similarity.rms"), DownloadURL: server.URL})
	if m, err := store.Load(context.Background()); err != nil || m.Size() != 2 {
		t.Fatalf("initial Load: size=%v err=%v", m, err)
	}
	version.Store(1)
	m, err := store.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if m.Size() != 3 {
		t.Fatalf("expected refreshed size 3, got %d", m.Size())
	}
	if cur, _ := store.Load(context.Background()); cur.Size() != 3 {
		t.Fatalf("expected memoized matrix to be replaced, got size %d", cur.Size())
	}
}
