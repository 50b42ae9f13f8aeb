package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/vidfriends/ingest/internal/logging"
	"github.com/vidfriends/ingest/internal/videos"
)

const maxUploadRequestBytes = 64 << 10

// UploadHandler lets privileged callers open a direct upload for a video.
type UploadHandler struct {
	Auth    CallerAuthenticator
	Uploads UploadStarter
	Limiter RateLimiter
	Metrics *Metrics
}

type uploadRequest struct {
	VideoID        string `json:"videoId"`
	PlaybackPolicy string `json:"playbackPolicy"`
}

type uploadResponse struct {
	VideoID        string `json:"videoId"`
	UploadID       string `json:"uploadId"`
	UploadURL      string `json:"uploadUrl"`
	PlaybackPolicy string `json:"playbackPolicy"`
}

// Create handles POST /api/v1/videos/uploads.
func (h UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "uploads") {
		h.Metrics.IncUpload(outcomeRateLimited)
		respondJSON(ctx, w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
		return
	}

	if h.Auth == nil || h.Uploads == nil {
		logger.Error("upload dependencies unavailable", "hasAuth", h.Auth != nil, "hasUploads", h.Uploads != nil)
		respondJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Error: "uploads unavailable"})
		return
	}

	callerID, err := h.Auth.Authenticate(r)
	if err != nil {
		h.Metrics.IncUpload(outcomeUnauthorized)
		respondJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	ctx = logging.With(ctx, "callerId", callerID)

	var req uploadRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxUploadRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid upload payload", "error", err)
		h.Metrics.IncUpload(outcomeInvalid)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.Uploads.Initiate(ctx, videos.UploadRequest{
		CallerID: callerID,
		VideoID:  req.VideoID,
		Policy:   req.PlaybackPolicy,
	})
	if err != nil {
		h.Metrics.IncUpload(outcomeFailed)
		respondError(ctx, w, err)
		return
	}

	h.Metrics.IncUpload(outcomeHandled)
	respondJSON(ctx, w, http.StatusCreated, uploadResponse{
		VideoID:        result.VideoID,
		UploadID:       result.UploadID,
		UploadURL:      result.UploadURL,
		PlaybackPolicy: string(result.Policy),
	})
}
