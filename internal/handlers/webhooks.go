package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/vidfriends/ingest/internal/logging"
	"github.com/vidfriends/ingest/internal/storage"
	"github.com/vidfriends/ingest/internal/videos"
)

// MaxWebhookBodyBytes caps the size of a provider callback body.
const MaxWebhookBodyBytes = 1 << 20

// Webhook outcome labels.
const (
	outcomeHandled      = "handled"
	outcomeIgnored      = "ignored"
	outcomeUnauthorized = "unauthorized"
	outcomeInvalid      = "invalid"
	outcomeFailed       = "failed"
	outcomeRateLimited  = "rate_limited"
)

// WebhookHandler receives provider status callbacks.
type WebhookHandler struct {
	Verifier   WebhookVerifier
	Reconciler EventReconciler
	Archive    PayloadArchive
	Limiter    RateLimiter
	Metrics    *Metrics
	NowFunc    func() time.Time
}

type webhookResponse struct {
	Received  bool   `json:"received"`
	EventType string `json:"eventType"`
	Handled   bool   `json:"handled"`
}

// Receive handles POST /api/v1/webhooks/mux. The body is read raw because the
// signature covers the exact bytes sent.
func (h WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "webhooks") {
		h.Metrics.IncWebhook("", outcomeRateLimited)
		respondJSON(ctx, w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
		return
	}

	if h.Verifier == nil || h.Reconciler == nil {
		logger.Error("webhook dependencies unavailable", "hasVerifier", h.Verifier != nil, "hasReconciler", h.Reconciler != nil)
		respondJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Error: "webhook processing unavailable"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Metrics.IncWebhook("", outcomeInvalid)
			respondJSON(ctx, w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
			return
		}
		h.Metrics.IncWebhook("", outcomeInvalid)
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "unable to read request body"})
		return
	}

	if err := h.Verifier.Verify(body, r.Header.Get(videos.SignatureHeader)); err != nil {
		h.Metrics.IncWebhook("", outcomeUnauthorized)
		respondJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: "invalid webhook signature"})
		return
	}

	env, err := videos.ParseEnvelope(body)
	if err != nil {
		h.Metrics.IncWebhook("", outcomeInvalid)
		respondError(ctx, w, err)
		return
	}
	ctx = logging.With(ctx, "eventType", env.Type, "eventId", env.ID)

	h.archive(ctx, env, body)

	event, err := videos.ParseEvent(env)
	if err != nil {
		h.Metrics.IncWebhook(env.Type, outcomeInvalid)
		respondError(ctx, w, err)
		return
	}

	outcome, err := h.Reconciler.Reconcile(ctx, event)
	if err != nil {
		h.Metrics.IncWebhook(env.Type, outcomeFailed)
		respondError(ctx, w, err)
		return
	}

	if outcome.Handled {
		h.Metrics.IncWebhook(env.Type, outcomeHandled)
	} else {
		h.Metrics.IncWebhook(env.Type, outcomeIgnored)
	}

	respondJSON(ctx, w, http.StatusOK, webhookResponse{
		Received:  true,
		EventType: outcome.EventType,
		Handled:   outcome.Handled,
	})
}

// archive stores the authenticated body. Failures are logged and never fail the delivery.
func (h WebhookHandler) archive(ctx context.Context, env videos.Envelope, body []byte) {
	if h.Archive == nil {
		return
	}

	now := time.Now
	if h.NowFunc != nil {
		now = h.NowFunc
	}

	key, err := h.Archive.Archive(ctx, storage.RawEvent{
		EventID:    env.ID,
		EventType:  env.Type,
		ReceivedAt: now().UTC(),
		Body:       body,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("archive webhook payload failed", "error", err)
		return
	}
	logging.FromContext(ctx).Debug("archived webhook payload", "key", key)
}
