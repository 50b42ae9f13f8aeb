package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vidfriends/ingest/internal/logging"
	"github.com/vidfriends/ingest/internal/models"
)

const (
	reasonNoPlaybackID  = "asset is ready but the provider reported no playback id"
	reasonEncodingError = "asset encoding failed"
)

// AssetStore persists the asset row of each video.
type AssetStore interface {
	// FindByExternalAssetID returns the asset whose provider asset id matches, or ErrNotFound.
	FindByExternalAssetID(ctx context.Context, assetID string) (models.VideoAsset, error)
	// Apply atomically replaces the video's asset row and projects its encoding
	// status onto the video. It returns the resulting video status, or ErrNotFound
	// when the video does not exist.
	Apply(ctx context.Context, asset models.VideoAsset) (models.VideoStatus, error)
}

// Outcome describes what a webhook event did.
type Outcome struct {
	EventType   string
	Handled     bool
	VideoID     string
	Encoding    models.EncodingStatus
	VideoStatus models.VideoStatus
}

// Reconciler drives the asset lifecycle from provider events.
//
// Events are applied in the order they are received; the last one wins. A
// redelivered video.asset.created that arrives after video.asset.ready moves
// the asset back to preparing until the provider sends another ready event.
type Reconciler struct {
	store AssetStore
}

// NewReconciler constructs a Reconciler persisting through store.
func NewReconciler(store AssetStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile applies event to the owning video's asset. Events that cannot be
// attributed to an existing video are acknowledged with Handled=false.
func (r *Reconciler) Reconcile(ctx context.Context, event Event) (Outcome, error) {
	out := Outcome{EventType: event.EventType()}
	if r == nil || r.store == nil {
		return out, fmt.Errorf("reconcile %s: %w", out.EventType, ErrUnavailable)
	}

	ctx, span := logging.StartSpan(ctx, "reconcile_event")
	defer span.End()
	logger := logging.FromContext(ctx).With("eventType", out.EventType)

	if _, ok := event.(Unhandled); ok {
		logger.Info("ignoring unhandled webhook event")
		return out, nil
	}

	assetID, passthrough := eventRefs(event)
	videoID, err := r.resolveVideo(ctx, passthrough, assetID)
	if errors.Is(err, ErrNotFound) {
		logger.Warn("webhook event does not resolve to a video", "assetId", assetID, "hasPassthrough", passthrough != "")
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("resolve video for asset %s: %w", assetID, err)
	}

	asset := NextAsset(videoID, event)
	status, err := r.store.Apply(ctx, asset)
	if errors.Is(err, ErrNotFound) {
		logger.Warn("webhook event references a missing video", "videoId", videoID, "assetId", assetID)
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("apply %s to video %s: %w", out.EventType, videoID, err)
	}

	out.Handled = true
	out.VideoID = videoID
	out.Encoding = asset.State.EncodingStatus()
	out.VideoStatus = status

	logger.Info("asset reconciled",
		"videoId", videoID,
		"assetId", assetID,
		"encodingStatus", out.Encoding,
		"videoStatus", status,
	)
	return out, nil
}

func (r *Reconciler) resolveVideo(ctx context.Context, passthrough, assetID string) (string, error) {
	if passthrough != "" {
		return passthrough, nil
	}
	if assetID == "" {
		return "", ErrNotFound
	}
	asset, err := r.store.FindByExternalAssetID(ctx, assetID)
	if err != nil {
		return "", err
	}
	return asset.VideoID, nil
}

func eventRefs(event Event) (assetID, passthrough string) {
	switch e := event.(type) {
	case UploadAssetCreated:
		return e.AssetID, e.Passthrough
	case AssetCreated:
		return e.AssetID, e.Passthrough
	case AssetReady:
		return e.AssetID, e.Passthrough
	case AssetErrored:
		return e.AssetID, e.Passthrough
	}
	return "", ""
}

// NextAsset computes the complete asset row an event leaves behind. It depends
// only on its arguments, so replaying an event produces the same row. The
// policy comes from the event alone: an event without usable playback ids
// leaves a public row even if the upload was requested as signed.
func NextAsset(videoID string, event Event) models.VideoAsset {
	asset := models.VideoAsset{
		VideoID:  videoID,
		Provider: models.ProviderMux,
		Policy:   models.PlaybackPolicyPublic,
	}

	switch e := event.(type) {
	case UploadAssetCreated:
		if e.Policy != "" {
			asset.Policy = e.Policy
		}
		asset.State = models.AssetPreparing{AssetID: e.AssetID}

	case AssetCreated:
		if p, ok := SelectPlaybackID(e.PlaybackIDs); ok {
			asset.Policy = p.Policy
		}
		asset.State = models.AssetPreparing{AssetID: e.AssetID}

	case AssetReady:
		p, ok := SelectPlaybackID(e.PlaybackIDs)
		if !ok {
			asset.State = models.AssetErrored{AssetID: e.AssetID, Reason: reasonNoPlaybackID}
			break
		}
		asset.Policy = p.Policy
		asset.State = models.AssetReady{AssetID: e.AssetID, PlaybackID: p.ID}

	case AssetErrored:
		if p, ok := SelectPlaybackID(e.PlaybackIDs); ok {
			asset.Policy = p.Policy
		}
		reason := strings.Join(e.Messages, "; ")
		if reason == "" {
			reason = reasonEncodingError
		}
		asset.State = models.AssetErrored{AssetID: e.AssetID, Reason: reason}

	default:
		asset.State = models.AssetPending{}
	}

	return asset
}

// SelectPlaybackID prefers a public playback id and otherwise returns the first one.
func SelectPlaybackID(ids []PlaybackID) (PlaybackID, bool) {
	if len(ids) == 0 {
		return PlaybackID{}, false
	}
	for _, id := range ids {
		if id.Policy == models.PlaybackPolicyPublic {
			return id, true
		}
	}
	return ids[0], true
}
