package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vidfriends/ingest/internal/logging"
	"github.com/vidfriends/ingest/internal/models"
)

// AccountLookup resolves the account type of an authenticated caller.
type AccountLookup interface {
	AccountType(ctx context.Context, userID string) (models.AccountType, error)
}

// VideoLookup loads catalog videos.
type VideoLookup interface {
	FindVideo(ctx context.Context, videoID string) (models.Video, error)
}

// ProviderUploadRequest is what the hosting provider needs to open a direct upload.
type ProviderUploadRequest struct {
	VideoID string
	Policy  models.PlaybackPolicy
	Origin  string
}

// ProviderUpload is an upload target issued by the provider.
type ProviderUpload struct {
	ID  string
	URL string
}

// UploadProvider creates direct upload targets at the hosting provider.
type UploadProvider interface {
	CreateUpload(ctx context.Context, req ProviderUploadRequest) (ProviderUpload, error)
}

// UploadRequest asks for a new upload target for a video.
type UploadRequest struct {
	CallerID string
	VideoID  string
	Policy   string
}

// UploadResult is returned to the caller, whose client sends the media bytes to UploadURL.
type UploadResult struct {
	VideoID   string
	UploadID  string
	UploadURL string
	Policy    models.PlaybackPolicy
}

// UploadInitiator opens provider uploads and seeds pending asset rows.
type UploadInitiator struct {
	accounts AccountLookup
	videos   VideoLookup
	provider UploadProvider
	store    AssetStore
	origin   string
}

// NewUploadInitiator wires the collaborators used by Initiate. origin is sent
// to the provider as the allowed CORS origin of browser uploads.
func NewUploadInitiator(accounts AccountLookup, videos VideoLookup, provider UploadProvider, store AssetStore, origin string) *UploadInitiator {
	return &UploadInitiator{
		accounts: accounts,
		videos:   videos,
		provider: provider,
		store:    store,
		origin:   origin,
	}
}

// Initiate authorizes the caller, requests an upload target and resets the
// video's asset to pending.
func (u *UploadInitiator) Initiate(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if u == nil || u.accounts == nil || u.videos == nil || u.provider == nil || u.store == nil {
		return UploadResult{}, fmt.Errorf("upload initiator: %w", ErrUnavailable)
	}

	ctx, span := logging.StartSpan(ctx, "initiate_upload")
	defer span.End()

	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return UploadResult{}, validationError("videoId is required")
	}
	policy, err := models.ParsePlaybackPolicy(req.Policy)
	if err != nil {
		return UploadResult{}, validationError("%v", err)
	}

	if err := u.authorize(ctx, req.CallerID); err != nil {
		return UploadResult{}, err
	}

	if _, err := u.videos.FindVideo(ctx, videoID); err != nil {
		return UploadResult{}, fmt.Errorf("find video %s: %w", videoID, err)
	}

	upload, err := u.provider.CreateUpload(ctx, ProviderUploadRequest{
		VideoID: videoID,
		Policy:  policy,
		Origin:  u.origin,
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("create provider upload for video %s: %w", videoID, err)
	}

	asset := models.VideoAsset{
		VideoID:  videoID,
		Provider: models.ProviderMux,
		Policy:   policy,
		State:    models.AssetPending{},
	}
	status, err := u.store.Apply(ctx, asset)
	if err != nil {
		return UploadResult{}, fmt.Errorf("seed pending asset for video %s: %w", videoID, err)
	}

	logging.FromContext(ctx).Info("upload initiated",
		"videoId", videoID,
		"uploadId", upload.ID,
		"playbackPolicy", policy,
		"videoStatus", status,
	)

	return UploadResult{
		VideoID:   videoID,
		UploadID:  upload.ID,
		UploadURL: upload.URL,
		Policy:    policy,
	}, nil
}

func (u *UploadInitiator) authorize(ctx context.Context, callerID string) error {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return ErrAuthorization
	}
	accountType, err := u.accounts.AccountType(ctx, callerID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: unknown account %s", ErrAuthorization, callerID)
	}
	if err != nil {
		return fmt.Errorf("load account %s: %w", callerID, err)
	}
	if !accountType.Privileged() {
		return fmt.Errorf("%w: account type %q cannot manage videos", ErrAuthorization, accountType)
	}
	return nil
}
