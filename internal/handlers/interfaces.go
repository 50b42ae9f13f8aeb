package handlers

import (
	"context"
	"net/http"

	"github.com/vidfriends/ingest/internal/storage"
	"github.com/vidfriends/ingest/internal/videos"
)

// WebhookVerifier authenticates a raw webhook body against its signature header.
type WebhookVerifier interface {
	Verify(body []byte, header string) error
}

// EventReconciler applies a parsed provider event.
type EventReconciler interface {
	Reconcile(ctx context.Context, event videos.Event) (videos.Outcome, error)
}

// PayloadArchive keeps an audit copy of authenticated webhook bodies.
type PayloadArchive interface {
	Archive(ctx context.Context, event storage.RawEvent) (string, error)
}

// CallerAuthenticator resolves the user id behind a request's credentials.
type CallerAuthenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// UploadStarter opens a provider upload for a video.
type UploadStarter interface {
	Initiate(ctx context.Context, req videos.UploadRequest) (videos.UploadResult, error)
}
