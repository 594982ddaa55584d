// Package retry runs operations with bounded exponential backoff and decides
// which failures are worth another attempt.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"reelmatch/internal/logging"
	"reelmatch/internal/services"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy suits remote calls that should give up within seconds.
var DefaultPolicy = Policy{
	MaxRetries:     2,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// Backoff returns the delay before retry number attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.InitialBackoff <= 0 {
		return 0
	}
	backoff := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if p.MaxBackoff > 0 && backoff >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		return p.MaxBackoff
	}
	return backoff
}

// Do calls op until it succeeds, fails with a non-retriable error, or the
// policy's retries are spent. The last error is returned unchanged.
func Do(ctx context.Context, policy Policy, logger *slog.Logger, eventType string, op func(context.Context) error) error {
	if op == nil {
		return errors.New("retry: operation unavailable")
	}
	attempt := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetriable(err) || attempt >= policy.MaxRetries {
			return err
		}
		attempt++
		backoff := policy.Backoff(attempt)
		if logger != nil {
			logger.Warn("transient failure, retrying",
				logging.Duration("backoff", backoff),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", policy.MaxRetries),
				logging.Error(err),
				logging.String(logging.FieldEventType, eventType),
				logging.String(logging.FieldErrorHint, "check network connectivity or upstream status"),
			)
		}
		if err := SleepWithContext(ctx, backoff); err != nil {
			return err
		}
	}
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, timeouts, connection errors).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Classified failures without the transient marker are final.
	for _, marker := range []error{
		services.ErrNotFound,
		services.ErrUnavailable,
		services.ErrPosterUnavailable,
		services.ErrValidation,
		services.ErrConfiguration,
	} {
		if errors.Is(err, marker) {
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"429", "rate limit",
		"502", "503", "504",
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"unexpected eof",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
