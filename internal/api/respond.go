package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"reelmatch/internal/logging"
	"reelmatch/internal/recommend"
	"reelmatch/internal/services"
)

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, kind, message string) {
	requestID, _ := services.RequestIDFromContext(r.Context())
	writeJSON(w, logger, status, ErrorResponse{Error: message, Kind: kind, RequestID: requestID})
}

// writeServiceError maps a classified error onto its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := services.HTTPStatus(err)
	requestID, _ := services.RequestIDFromContext(r.Context())
	body := ErrorResponse{Error: err.Error(), Kind: services.Kind(err), RequestID: requestID}

	var unknown *recommend.UnknownTitleError
	if errors.As(err, &unknown) {
		body.Suggestions = unknown.Suggestions
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), logger), "request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	writeJSON(w, logger, status, body)
}
