package mux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vidfriends/ingest/internal/models"
	"github.com/vidfriends/ingest/internal/videos"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, TokenID: "token-id", TokenSecret: "token-secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	cases := []Config{
		{},
		{TokenID: "id"},
		{TokenSecret: "secret"},
		{TokenID: "  ", TokenSecret: "secret"},
	}
	for _, cfg := range cases {
		if _, err := NewClient(cfg); !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials for %+v, got %v", cfg, err)
		}
	}
}

func TestCreateUploadSendsPassthroughAndPolicy(t *testing.T) {
	var received createUploadRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/video/v1/uploads" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "token-id" || pass != "token-secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"U1","url":"https://storage.example.com/U1","status":"waiting"}}`))
	})

	upload, err := client.CreateUpload(context.Background(), videos.ProviderUploadRequest{
		VideoID: "video-1",
		Policy:  models.PlaybackPolicySigned,
		Origin:  "https://app.example.com",
	})
	if err != nil {
		t.Fatalf("CreateUpload() error = %v", err)
	}

	if upload.ID != "U1" || upload.URL != "https://storage.example.com/U1" {
		t.Fatalf("unexpected upload: %+v", upload)
	}
	if received.NewAssetSettings.Passthrough != "video-1" {
		t.Fatalf("expected passthrough video-1, got %q", received.NewAssetSettings.Passthrough)
	}
	if len(received.NewAssetSettings.PlaybackPolicy) != 1 || received.NewAssetSettings.PlaybackPolicy[0] != "signed" {
		t.Fatalf("unexpected playback policy: %v", received.NewAssetSettings.PlaybackPolicy)
	}
	if received.CORSOrigin != "https://app.example.com" {
		t.Fatalf("unexpected cors origin: %q", received.CORSOrigin)
	}
}

func TestCreateUploadSurfacesProviderErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_parameters","messages":["cors_origin is invalid"]}}`))
	})

	_, err := client.CreateUpload(context.Background(), videos.ProviderUploadRequest{VideoID: "video-1", Policy: models.PlaybackPolicyPublic})
	if !errors.Is(err, videos.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	var upstream *videos.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if upstream.StatusCode != http.StatusBadRequest || upstream.Type != "invalid_parameters" {
		t.Fatalf("unexpected upstream error: %+v", upstream)
	}
	if len(upstream.Messages) != 1 || upstream.Messages[0] != "cors_origin is invalid" {
		t.Fatalf("unexpected messages: %v", upstream.Messages)
	}
}

func TestCreateUploadUnstructuredError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := client.CreateUpload(context.Background(), videos.ProviderUploadRequest{VideoID: "video-1", Policy: models.PlaybackPolicyPublic})
	var upstream *videos.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if len(upstream.Messages) != 1 || upstream.Messages[0] != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("unexpected messages: %v", upstream.Messages)
	}
}

func TestCreateUploadIncompleteResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"U1"}}`))
	})

	_, err := client.CreateUpload(context.Background(), videos.ProviderUploadRequest{VideoID: "video-1", Policy: models.PlaybackPolicyPublic})
	if !errors.Is(err, videos.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for missing url, got %v", err)
	}
}

func TestCreateUploadMalformedSuccessBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`<html>created</html>`))
	})

	_, err := client.CreateUpload(context.Background(), videos.ProviderUploadRequest{VideoID: "video-1", Policy: models.PlaybackPolicyPublic})
	var upstream *videos.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %d", upstream.StatusCode)
	}
}

func TestCreateUploadUnreachableProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: baseURL, TokenID: "id", TokenSecret: "secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.CreateUpload(context.Background(), videos.ProviderUploadRequest{VideoID: "video-1", Policy: models.PlaybackPolicyPublic})
	if !errors.Is(err, videos.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCreateUploadCircuitOpens(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, TokenID: "id", TokenSecret: "secret", Timeout: time.Second, BreakerDelay: time.Minute})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	req := videos.ProviderUploadRequest{VideoID: "video-1", Policy: models.PlaybackPolicyPublic}
	for i := 0; i < 10; i++ {
		_, _ = client.CreateUpload(context.Background(), req)
	}
	callsBeforeOpen := calls

	_, err = client.CreateUpload(context.Background(), req)
	if !errors.Is(err, videos.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable once the circuit is open, got %v", err)
	}
	if calls != callsBeforeOpen {
		t.Fatalf("expected open circuit to short-circuit the request, calls %d -> %d", callsBeforeOpen, calls)
	}
}
