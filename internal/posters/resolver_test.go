package posters_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelmatch/internal/posters"
	"reelmatch/internal/retry"
	"reelmatch/internal/services"
	"reelmatch/internal/tmdb"
)

const (
	imageBase   = "https://image.tmdb.org/t/p/w500"
	placeholder = "https://via.placeholder.com/500x750?text=No+Poster"
)

type fetcherFunc func(ctx context.Context, id int64) (*tmdb.Movie, error)

func (f fetcherFunc) GetMovie(ctx context.Context, id int64) (*tmdb.Movie, error) {
	return f(ctx, id)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[int64]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[int64]string{}}
}

func (c *memoryCache) Lookup(_ context.Context, id int64) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.entries[id]
	return url, ok, nil
}

func (c *memoryCache) Store(_ context.Context, id int64, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = url
	return nil
}

func posterFetcher() fetcherFunc {
	return func(_ context.Context, id int64) (*tmdb.Movie, error) {
		return &tmdb.Movie{ID: id, PosterPath: fmt.Sprintf("/poster-%d.jpg", id)}, nil
	}
}

func TestFetchPosterBuildsImageURLAndCaches(t *testing.T) {
	cache := newMemoryCache()
	resolver := posters.New(posterFetcher(), posters.Options{
		ImageBaseURL:   imageBase + "/",
		PlaceholderURL: placeholder,
		Cache:          cache,
	})

	url, err := resolver.FetchPoster(context.Background(), 603)
	if err != nil {
		t.Fatalf("FetchPoster returned error: %v", err)
	}
	if want := imageBase + "/poster-603.jpg"; url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}
	if cached, ok, _ := cache.Lookup(context.Background(), 603); !ok || cached != url {
		t.Fatalf("expected url cached, got %q ok=%v", cached, ok)
	}
}

func TestFetchPosterPrefersCache(t *testing.T) {
	cache := newMemoryCache()
	_ = cache.Store(context.Background(), 7, "https://cached.example/7.jpg")
	var calls atomic.Int32
	resolver := posters.New(fetcherFunc(func(context.Context, int64) (*tmdb.Movie, error) {
		calls.Add(1)
		return nil, errors.New("should not be called")
	}), posters.Options{ImageBaseURL: imageBase, PlaceholderURL: placeholder, Cache: cache})

	got := resolver.ResolveAll(context.Background(), []int64{7})
	if got[0].URL != "https://cached.example/7.jpg" || got[0].Source != posters.SourceCache || got[0].Placeholder {
		t.Fatalf("unexpected poster %#v", got[0])
	}
	if calls.Load() != 0 {
		t.Fatalf("fetcher called %d times on cache hit", calls.Load())
	}
}

func TestResolveAllWithoutFetcherUsesPlaceholders(t *testing.T) {
	resolver := posters.New(nil, posters.Options{ImageBaseURL: imageBase, PlaceholderURL: placeholder})

	got := resolver.ResolveAll(context.Background(), []int64{1, 2})
	for _, poster := range got {
		if !poster.Placeholder || poster.URL != placeholder {
			t.Fatalf("expected placeholder, got %#v", poster)
		}
		if !errors.Is(poster.Err, services.ErrPosterUnavailable) {
			t.Fatalf("expected ErrPosterUnavailable, got %v", poster.Err)
		}
	}
}

func TestResolveAllKeepsOrderAndFallsBackPerEntry(t *testing.T) {
	resolver := posters.New(fetcherFunc(func(_ context.Context, id int64) (*tmdb.Movie, error) {
		if id == 2 {
			return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "movie", "status 404", nil)
		}
		// Finish out of order.
		time.Sleep(time.Duration(5-id) * 5 * time.Millisecond)
		return &tmdb.Movie{ID: id, PosterPath: fmt.Sprintf("/p%d.jpg", id)}, nil
	}), posters.Options{ImageBaseURL: imageBase, PlaceholderURL: placeholder, Concurrency: 4})

	ids := []int64{1, 2, 3, 4}
	got := resolver.ResolveAll(context.Background(), ids)
	if len(got) != len(ids) {
		t.Fatalf("expected %d posters, got %d", len(ids), len(got))
	}
	for i, poster := range got {
		if poster.MovieID != ids[i] {
			t.Fatalf("position %d holds movie %d", i, poster.MovieID)
		}
		if ids[i] == 2 {
			if !poster.Placeholder || poster.URL != placeholder {
				t.Fatalf("expected placeholder for failed entry, got %#v", poster)
			}
			continue
		}
		if want := fmt.Sprintf("%s/p%d.jpg", imageBase, ids[i]); poster.URL != want || poster.Placeholder {
			t.Fatalf("position %d = %#v, want %s", i, poster, want)
		}
	}
}

func TestResolveAllAppliesFetchTimeout(t *testing.T) {
	resolver := posters.New(fetcherFunc(func(ctx context.Context, id int64) (*tmdb.Movie, error) {
		if id == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &tmdb.Movie{ID: id, PosterPath: "/fast.jpg"}, nil
	}), posters.Options{
		ImageBaseURL:   imageBase,
		PlaceholderURL: placeholder,
		FetchTimeout:   50 * time.Millisecond,
	})

	start := time.Now()
	got := resolver.ResolveAll(context.Background(), []int64{1, 2})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("ResolveAll took %v despite fetch timeout", elapsed)
	}
	if !got[0].Placeholder {
		t.Fatalf("expected slow fetch to fall back, got %#v", got[0])
	}
	if got[1].Placeholder || got[1].URL != imageBase+"/fast.jpg" {
		t.Fatalf("expected fast fetch to succeed, got %#v", got[1])
	}
}

func TestResolveAllBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	resolver := posters.New(fetcherFunc(func(_ context.Context, id int64) (*tmdb.Movie, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := peak.Load()
			if current <= prev || peak.CompareAndSwap(prev, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return &tmdb.Movie{ID: id, PosterPath: "/x.jpg"}, nil
	}), posters.Options{ImageBaseURL: imageBase, PlaceholderURL: placeholder, Concurrency: 2})

	ids := make([]int64, 10)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	resolver.ResolveAll(context.Background(), ids)
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds limit 2", peak.Load())
	}
}

func TestFetchPosterRetriesTransientTMDBErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":11,"title":"Star Wars","poster_path":"/sw.jpg"}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US", tmdb.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("tmdb.New: %v", err)
	}
	resolver := posters.New(client, posters.Options{
		ImageBaseURL:   imageBase,
		PlaceholderURL: placeholder,
		Retry:          retry.Policy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	})

	url, err := resolver.FetchPoster(context.Background(), 11)
	if err != nil {
		t.Fatalf("FetchPoster returned error: %v", err)
	}
	if url != imageBase+"/sw.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 TMDB calls, got %d", calls.Load())
	}
}
