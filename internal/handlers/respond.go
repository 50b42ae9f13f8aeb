package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidfriends/ingest/internal/logging"
	"github.com/vidfriends/ingest/internal/videos"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError maps a domain error onto its HTTP status and a message safe to
// show the caller. Provider rejections are passed through verbatim.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := http.StatusText(status)

	var upstream *videos.UpstreamError
	switch {
	case errors.As(err, &upstream):
		message = upstream.Error()
	case status == http.StatusBadRequest:
		message = err.Error()
	case status == http.StatusNotFound:
		message = videos.ErrNotFound.Error()
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request error", "error", err)
	}
	respondJSON(ctx, w, status, errorResponse{Error: message})
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, videos.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, videos.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, videos.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, videos.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, videos.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, videos.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
