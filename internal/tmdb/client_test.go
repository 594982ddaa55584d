package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"reelmatch/internal/retry"
	"reelmatch/internal/services"
	"reelmatch/internal/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := tmdb.New("", "https://example.com", "en-US")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error when api key missing, got %v", err)
	}
}

func TestGetMovieSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "key" || r.URL.Query().Get("language") != "en-US" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","poster_path":"/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg"}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US", tmdb.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	movie, err := client.GetMovie(context.Background(), 603)
	if err != nil {
		t.Fatalf("GetMovie returned error: %v", err)
	}
	if movie.Title != "The Matrix" || movie.PosterPath != "/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg" {
		t.Fatalf("unexpected movie: %#v", movie)
	}
}

func TestGetMovieMissingPosterPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"title":"Obscure","poster_path":null}`))
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	_, err := client.GetMovie(context.Background(), 1)
	if !errors.Is(err, services.ErrPosterUnavailable) {
		t.Fatalf("expected ErrPosterUnavailable, got %v", err)
	}
	if retry.IsRetriable(err) {
		t.Fatalf("missing poster must not be retried: %v", err)
	}
}

func TestGetMovieStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		retriable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client, _ := tmdb.New("key", server.URL, "")
		_, err := client.GetMovie(context.Background(), 42)
		server.Close()

		if !errors.Is(err, services.ErrPosterUnavailable) {
			t.Fatalf("status %d: expected ErrPosterUnavailable, got %v", tc.status, err)
		}
		if got := retry.IsRetriable(err); got != tc.retriable {
			t.Fatalf("status %d: retriable=%v, want %v (%v)", tc.status, got, tc.retriable, err)
		}
	}
}

func TestCircuitOpensAfterRepeatedServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	for i := 0; i < 5; i++ {
		_, _ = client.GetMovie(context.Background(), int64(i))
	}
	_, err := client.GetMovie(context.Background(), 99)
	if !errors.Is(err, services.ErrPosterUnavailable) {
		t.Fatalf("expected ErrPosterUnavailable from open circuit, got %v", err)
	}
	if got := hits.Load(); got != 5 {
		t.Fatalf("expected open circuit to skip the request, server saw %d", got)
	}
}

func TestNotFoundDoesNotTripCircuit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	for i := 0; i < 8; i++ {
		_, _ = client.GetMovie(context.Background(), int64(i))
	}
	if got := hits.Load(); got != 8 {
		t.Fatalf("expected every request to reach the server, got %d", got)
	}
}

func TestImageURL(t *testing.T) {
	cases := map[[2]string]string{
		{"https://image.tmdb.org/t/p/w500", "/abc.jpg"}:  "https://image.tmdb.org/t/p/w500/abc.jpg",
		{"https://image.tmdb.org/t/p/w500/", "/abc.jpg"}: "https://image.tmdb.org/t/p/w500/abc.jpg",
		{"https://image.tmdb.org/t/p/w500", "abc.jpg"}:   "https://image.tmdb.org/t/p/w500/abc.jpg",
		{"https://image.tmdb.org/t/p/w500", ""}:          "",
	}
	for in, want := range cases {
		if got := tmdb.ImageURL(in[0], in[1]); got != want {
			t.Fatalf("ImageURL(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
