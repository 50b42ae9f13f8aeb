package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/vidfriends/ingest/internal/videos"
)

// DefaultBaseURL is the public Mux API endpoint.
const DefaultBaseURL = "https://api.mux.com"

// ErrMissingCredentials indicates the client was built without an access token.
var ErrMissingCredentials = errors.New("mux: access token id and secret are required")

// Config holds the Mux API credentials and transport settings.
type Config struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
	Timeout     time.Duration
	// BreakerDelay is how long the circuit stays open after tripping.
	BreakerDelay time.Duration
}

// Client is a minimal Mux Video API client.
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	httpClient  *http.Client
	executor    failsafe.Executor[*http.Response]
}

// NewClient validates credentials and builds a client guarded by a circuit breaker.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.TokenID) == "" || strings.TrimSpace(cfg.TokenSecret) == "" {
		return nil, ErrMissingCredentials
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = 15 * time.Second
	}

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode >= http.StatusInternalServerError
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(cfg.BreakerDelay).
		WithSuccessThreshold(1).
		Build()

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		tokenID:     cfg.TokenID,
		tokenSecret: cfg.TokenSecret,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		executor:    failsafe.With[*http.Response](breaker),
	}, nil
}

type createUploadRequest struct {
	CORSOrigin       string           `json:"cors_origin,omitempty"`
	NewAssetSettings newAssetSettings `json:"new_asset_settings"`
}

type newAssetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
	Passthrough    string   `json:"passthrough"`
}

type uploadResponse struct {
	Data struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Status string `json:"status"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Type     string   `json:"type"`
		Messages []string `json:"messages"`
	} `json:"error"`
}

// CreateUpload opens a direct upload whose asset echoes the video id back as passthrough.
func (c *Client) CreateUpload(ctx context.Context, req videos.ProviderUploadRequest) (videos.ProviderUpload, error) {
	payload, err := json.Marshal(createUploadRequest{
		CORSOrigin: req.Origin,
		NewAssetSettings: newAssetSettings{
			PlaybackPolicy: []string{string(req.Policy)},
			Passthrough:    req.VideoID,
		},
	})
	if err != nil {
		return videos.ProviderUpload{}, fmt.Errorf("encode mux upload request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/video/v1/uploads", payload)
	if err != nil {
		return videos.ProviderUpload{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return videos.ProviderUpload{}, fmt.Errorf("read mux response: %w: %w", videos.ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return videos.ProviderUpload{}, upstreamError(resp.StatusCode, body)
	}

	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return videos.ProviderUpload{}, &videos.UpstreamError{
			StatusCode: resp.StatusCode,
			Messages:   []string{"upload response is not valid JSON"},
		}
	}
	if out.Data.ID == "" || out.Data.URL == "" {
		return videos.ProviderUpload{}, &videos.UpstreamError{
			StatusCode: resp.StatusCode,
			Messages:   []string{"upload response missing id or url"},
		}
	}

	return videos.ProviderUpload{ID: out.Data.ID, URL: out.Data.URL}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.tokenID, c.tokenSecret)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("mux %s %s: circuit open: %w", method, path, videos.ErrUnavailable)
		}
		return nil, fmt.Errorf("mux %s %s: %w: %w", method, path, videos.ErrUnavailable, err)
	}
	return resp, nil
}

func upstreamError(status int, body []byte) error {
	upstream := &videos.UpstreamError{StatusCode: status}

	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		upstream.Type = parsed.Error.Type
		upstream.Messages = parsed.Error.Messages
	}
	if len(upstream.Messages) == 0 {
		upstream.Messages = []string{http.StatusText(status)}
	}
	return upstream
}

var _ videos.UploadProvider = (*Client)(nil)
