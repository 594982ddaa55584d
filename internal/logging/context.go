package logging

import (
	"context"
	"log/slog"

	"reelmatch/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRequestID carries the API request identifier.
	FieldRequestID = "request_id"
	// FieldMovieID is the TMDB movie identifier a line refers to.
	FieldMovieID = "movie_id"
	// FieldTitle is the movie title a line refers to.
	FieldTitle = "title"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// WithContext returns logger tagged with the request ID carried by ctx, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		return logger.With(String(FieldRequestID, rid))
	}
	return logger
}
