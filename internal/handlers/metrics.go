package handlers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vidfriends/ingest/internal/videos"
)

// Metrics counts webhook deliveries and upload initiations.
type Metrics struct {
	WebhookEvents  *prometheus.CounterVec
	UploadRequests *prometheus.CounterVec
}

// NewMetrics builds the counters and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_webhook_events_total",
				Help: "Provider webhook deliveries by event type and outcome.",
			},
			[]string{"event_type", "outcome"},
		),
		UploadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_upload_requests_total",
				Help: "Upload initiation requests by outcome.",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.WebhookEvents, m.UploadRequests)
	}
	return m
}

// IncWebhook records one webhook delivery. Unknown event types share a label.
func (m *Metrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.WebhookEvents == nil {
		return
	}
	switch eventType {
	case videos.EventUploadAssetCreated, videos.EventAssetCreated, videos.EventAssetReady, videos.EventAssetErrored:
	case "":
		eventType = "unknown"
	default:
		eventType = "other"
	}
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// IncUpload records one upload initiation request.
func (m *Metrics) IncUpload(outcome string) {
	if m == nil || m.UploadRequests == nil {
		return
	}
	m.UploadRequests.WithLabelValues(outcome).Inc()
}
