package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"reelmatch/internal/logging"
	"reelmatch/internal/retry"
	"reelmatch/internal/services"
)

var fastPolicy = retry.Policy{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastPolicy, logging.NewNop(), "test_retry", func(context.Context) error {
		calls++
		if calls < 3 {
			return services.Wrap(services.ErrTransient, "test", "call", "flaky", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := services.Wrap(services.ErrNotFound, "tmdb", "movie", "status 404", nil)
	err := retry.Do(context.Background(), fastPolicy, nil, "test_retry", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected permanent error back, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastPolicy, nil, "test_retry", func(context.Context) error {
		calls++
		return errors.New("status 503")
	})
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if calls != fastPolicy.MaxRetries+1 {
		t.Fatalf("expected %d calls, got %d", fastPolicy.MaxRetries+1, calls)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := retry.Policy{MaxRetries: 5, InitialBackoff: time.Hour}
	err := retry.Do(ctx, policy, nil, "test_retry", func(context.Context) error {
		return errors.New("connection reset by peer")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestBackoffIsCapped(t *testing.T) {
	policy := retry.Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, expected := range want {
		if got := policy.Backoff(i + 1); got != expected {
			t.Fatalf("Backoff(%d) = %v, want %v", i+1, got, expected)
		}
	}
}

func TestIsRetriable(t *testing.T) {
	cases := map[error]bool{
		nil:                           false,
		errors.New("tmdb status 429"): true,
		errors.New("i/o timeout"):     true,
		context.DeadlineExceeded:      true,
		context.Canceled:              false,
		errors.New("tmdb status 401"): false,
		fmt.Errorf("wrap: %w", services.ErrTransient): true,
	}
	for err, want := range cases {
		if got := retry.IsRetriable(err); got != want {
			t.Fatalf("IsRetriable(%v) = %v, want %v", err, got, want)
		}
	}
}
