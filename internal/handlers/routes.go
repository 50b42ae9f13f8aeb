package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	webhooks := WebhookHandler{
		Verifier:   deps.Verifier,
		Reconciler: deps.Reconciler,
		Archive:    deps.Archive,
		Limiter:    deps.Limiter,
		Metrics:    deps.Metrics,
	}
	uploads := UploadHandler{
		Auth:    deps.Auth,
		Uploads: deps.Uploads,
		Limiter: deps.Limiter,
		Metrics: deps.Metrics,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/webhooks/mux", webhooks.Receive)
	mux.HandleFunc("/api/v1/videos/uploads", uploads.Create)

	if deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Database   Pinger
	Verifier   WebhookVerifier
	Reconciler EventReconciler
	Archive    PayloadArchive
	Auth       CallerAuthenticator
	Uploads    UploadStarter
	Limiter    RateLimiter
	Metrics    *Metrics
	Gatherer   prometheus.Gatherer
}
