package services

import (
	"context"
	"strings"
)

type requestIDKey struct{}

// WithRequestID attaches the API request ID to ctx so that logs and error
// bodies produced further down can quote it. Blank IDs leave ctx untouched.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id = strings.TrimSpace(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext reports the request ID attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
