// Package tmdb is a small client for The Movie Database API, limited to the
// movie details endpoint reelmatch needs for posters.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"reelmatch/internal/logging"
	"reelmatch/internal/metrics"
	"reelmatch/internal/services"
)

const (
	defaultTimeout    = 10 * time.Second
	breakerName       = "tmdb-api"
	breakerTripCount  = 5
	breakerOpenPeriod = 30 * time.Second
)

// Movie is the subset of TMDB movie details reelmatch reads.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

// Client calls the TMDB API with a request rate limit and a circuit breaker.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Movie]
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit bounds outgoing requests. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// WithLogger attaches a logger for breaker state changes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "init", "api key required (tmdb.api_key or TMDB_API_KEY)", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "init", "base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "tmdb")
	client.breaker = client.newBreaker()
	return client, nil
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[*Movie] {
	metrics.TMDBCircuitState.Set(0)
	return gobreaker.NewCircuitBreaker[*Movie](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerOpenPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripCount
		},
		// A movie without a poster or an unknown ID says nothing about TMDB health.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, services.ErrTransient)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.TMDBCircuitState.Set(stateValue(to))
			logging.WarnWithContext(c.logger, "tmdb circuit breaker state changed", "tmdb_circuit_state",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldErrorHint, "check TMDB availability and tmdb.api_key"),
				logging.String(logging.FieldImpact, "posters fall back to placeholders while the circuit is open"),
			)
		},
	})
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// GetMovie fetches movie details for id.
//
// Errors carry services.ErrPosterUnavailable. Rate limiting (429), server
// errors, and network failures additionally carry services.ErrTransient so
// callers may retry them.
func (c *Client) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "rate limit", "", err)
		}
	}
	movie, err := c.breaker.Execute(func() (*Movie, error) {
		return c.getMovie(ctx, id)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "movie", "circuit open", err)
	}
	return movie, err
}

func (c *Client) getMovie(ctx context.Context, id int64) (*Movie, error) {
	endpoint, err := url.Parse(c.baseURL + "/movie/" + strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		metrics.RecordTMDBRequest(0, latency)
		return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "movie",
			fmt.Sprintf("execute request (latency=%v)", latency), fmt.Errorf("%w: %w", services.ErrTransient, err))
	}
	defer resp.Body.Close()
	metrics.RecordTMDBRequest(resp.StatusCode, latency)

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("movie %d returned status %d (latency=%v)", id, resp.StatusCode, latency)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "movie", msg, services.ErrTransient)
		}
		return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "movie", msg, nil)
	}

	var movie Movie
	if err := json.NewDecoder(resp.Body).Decode(&movie); err != nil {
		return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "movie", "decode response", err)
	}
	if strings.TrimSpace(movie.PosterPath) == "" {
		return nil, services.Wrap(services.ErrPosterUnavailable, "tmdb", "movie", fmt.Sprintf("movie %d has no poster_path", id), nil)
	}
	return &movie, nil
}

// ImageURL joins the image base URL and a poster path with exactly one slash.
func ImageURL(base, posterPath string) string {
	posterPath = strings.TrimSpace(posterPath)
	if posterPath == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(posterPath, "/")
}
