package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vidfriends/ingest/internal/auth"
	"github.com/vidfriends/ingest/internal/models"
	"github.com/vidfriends/ingest/internal/videos"
)

type authenticatorStub struct {
	callerID string
	err      error
}

func (s authenticatorStub) Authenticate(*http.Request) (string, error) {
	return s.callerID, s.err
}

type uploadStarterStub struct {
	result videos.UploadResult
	err    error
	reqs   []videos.UploadRequest
}

func (s *uploadStarterStub) Initiate(_ context.Context, req videos.UploadRequest) (videos.UploadResult, error) {
	s.reqs = append(s.reqs, req)
	return s.result, s.err
}

func newUploadRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/uploads", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token")
	return req
}

func TestUploadHandlerCreateSuccess(t *testing.T) {
	starter := &uploadStarterStub{result: videos.UploadResult{
		VideoID:   "V",
		UploadID:  "U1",
		UploadURL: "https://storage.example.com/U1",
		Policy:    models.PlaybackPolicySigned,
	}}
	handler := UploadHandler{Auth: authenticatorStub{callerID: "creator-1"}, Uploads: starter, Metrics: NewMetrics(nil)}

	rec := httptest.NewRecorder()
	handler.Create(rec, newUploadRequest(`{"videoId":"V","playbackPolicy":"signed"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.VideoID != "V" || resp.UploadID != "U1" || resp.UploadURL != "https://storage.example.com/U1" || resp.PlaybackPolicy != "signed" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if len(starter.reqs) != 1 || starter.reqs[0] != (videos.UploadRequest{CallerID: "creator-1", VideoID: "V", Policy: "signed"}) {
		t.Fatalf("unexpected initiate requests: %+v", starter.reqs)
	}
	if got := testutil.ToFloat64(handler.Metrics.UploadRequests.WithLabelValues(outcomeHandled)); got != 1 {
		t.Fatalf("expected handled counter 1, got %v", got)
	}
}

func TestUploadHandlerRequiresAuthentication(t *testing.T) {
	starter := &uploadStarterStub{}
	handler := UploadHandler{Auth: authenticatorStub{err: auth.ErrMissingToken}, Uploads: starter}

	rec := httptest.NewRecorder()
	handler.Create(rec, newUploadRequest(`{"videoId":"V"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(starter.reqs) != 0 {
		t.Fatalf("unauthenticated request must not reach the initiator")
	}
}

func TestUploadHandlerRejectsInvalidBodies(t *testing.T) {
	for _, body := range []string{`{`, `{"videoId":"V","unknown":true}`, `[]`} {
		starter := &uploadStarterStub{}
		handler := UploadHandler{Auth: authenticatorStub{callerID: "creator-1"}, Uploads: starter}

		rec := httptest.NewRecorder()
		handler.Create(rec, newUploadRequest(body))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, rec.Code)
		}
		if len(starter.reqs) != 0 {
			t.Fatalf("body %s: invalid request must not reach the initiator", body)
		}
	}
}

func TestUploadHandlerMapsErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", fmt.Errorf("%w: videoId is required", videos.ErrValidation), http.StatusBadRequest, "videoId is required"},
		{"forbidden", videos.ErrAuthorization, http.StatusForbidden, "Forbidden"},
		{"missingVideo", fmt.Errorf("find video V: %w", videos.ErrNotFound), http.StatusNotFound, "video not found"},
		{"providerDown", fmt.Errorf("mux: %w", videos.ErrUnavailable), http.StatusServiceUnavailable, "Service Unavailable"},
		{"providerRejected", &videos.UpstreamError{StatusCode: 400, Messages: []string{"cors_origin is invalid"}}, http.StatusBadGateway, "cors_origin is invalid"},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := UploadHandler{
				Auth:    authenticatorStub{callerID: "creator-1"},
				Uploads: &uploadStarterStub{err: tc.err},
				Metrics: NewMetrics(nil),
			}

			rec := httptest.NewRecorder()
			handler.Create(rec, newUploadRequest(`{"videoId":"V"}`))

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if !strings.Contains(resp.Error, tc.message) {
				t.Fatalf("expected error message containing %q, got %q", tc.message, resp.Error)
			}
			if got := testutil.ToFloat64(handler.Metrics.UploadRequests.WithLabelValues(outcomeFailed)); got != 1 {
				t.Fatalf("expected failed counter 1, got %v", got)
			}
		})
	}
}

func TestUploadHandlerMethodAndLimits(t *testing.T) {
	handler := UploadHandler{Auth: authenticatorStub{callerID: "creator-1"}, Uploads: &uploadStarterStub{}}

	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos/uploads", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rec.Code)
	}

	handler.Limiter = denyAllLimiter{}
	rec = httptest.NewRecorder()
	handler.Create(rec, newUploadRequest(`{"videoId":"V"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		auth.ErrInvalidToken:     http.StatusUnauthorized,
		videos.ErrAuthentication: http.StatusUnauthorized,
		videos.ErrValidation:     http.StatusBadRequest,
		videos.ErrAuthorization:  http.StatusForbidden,
		videos.ErrNotFound:       http.StatusNotFound,
		videos.ErrUnavailable:    http.StatusServiceUnavailable,
		videos.ErrUpstream:       http.StatusBadGateway,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
