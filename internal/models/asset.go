package models

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderMux is the only hosting provider the service talks to.
const ProviderMux = "mux"

// PlaybackPolicy is the access mode of an encoded asset.
type PlaybackPolicy string

const (
	PlaybackPolicyPublic PlaybackPolicy = "public"
	PlaybackPolicySigned PlaybackPolicy = "signed"
)

// ParsePlaybackPolicy normalizes a policy string. Empty input yields the public default.
func ParsePlaybackPolicy(value string) (PlaybackPolicy, error) {
	switch PlaybackPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PlaybackPolicyPublic:
		return PlaybackPolicyPublic, nil
	case PlaybackPolicySigned:
		return PlaybackPolicySigned, nil
	default:
		return "", fmt.Errorf("unknown playback policy %q", value)
	}
}

// EncodingStatus is the provider-side encoding state mirrored locally.
type EncodingStatus string

const (
	EncodingPending   EncodingStatus = "pending"
	EncodingPreparing EncodingStatus = "preparing"
	EncodingReady     EncodingStatus = "ready"
	EncodingErrored   EncodingStatus = "errored"
)

// VideoStatus projects an encoding status onto the owning video's lifecycle.
func (s EncodingStatus) VideoStatus() VideoStatus {
	switch s {
	case EncodingReady:
		return VideoStatusReady
	case EncodingErrored:
		return VideoStatusBlocked
	default:
		return VideoStatusProcessing
	}
}

// AssetState is the closed set of encoding states. Each variant carries only
// the fields that are valid in that state.
type AssetState interface {
	EncodingStatus() EncodingStatus
	assetState()
}

// AssetPending is a seeded row: the upload was requested, nothing is known yet.
type AssetPending struct{}

// AssetPreparing means the provider created the asset and is encoding it.
type AssetPreparing struct {
	AssetID string
}

// AssetReady means the asset is playable through PlaybackID.
type AssetReady struct {
	AssetID    string
	PlaybackID string
}

// AssetErrored is terminal for the asset. AssetID is empty when the provider never reported one.
type AssetErrored struct {
	AssetID string
	Reason  string
}

func (AssetPending) EncodingStatus() EncodingStatus   { return EncodingPending }
func (AssetPreparing) EncodingStatus() EncodingStatus { return EncodingPreparing }
func (AssetReady) EncodingStatus() EncodingStatus     { return EncodingReady }
func (AssetErrored) EncodingStatus() EncodingStatus   { return EncodingErrored }

func (AssetPending) assetState()   {}
func (AssetPreparing) assetState() {}
func (AssetReady) assetState()     {}
func (AssetErrored) assetState()   {}

// VideoAsset is the single hosted-asset record of a video.
type VideoAsset struct {
	VideoID  string
	Provider string
	Policy   PlaybackPolicy
	State    AssetState
}

// AssetRecord is the flat, nullable row shape persisted in video_assets.
type AssetRecord struct {
	VideoID         string
	Provider        string
	ExternalAssetID *string
	PlaybackID      *string
	PlaybackPolicy  PlaybackPolicy
	EncodingStatus  EncodingStatus
	LastError       *string
}

// ErrInvalidAssetRecord indicates a stored row violates the asset invariants.
var ErrInvalidAssetRecord = errors.New("invalid asset record")

// Record flattens the asset into its persisted shape.
func (a VideoAsset) Record() AssetRecord {
	rec := AssetRecord{
		VideoID:        a.VideoID,
		Provider:       a.Provider,
		PlaybackPolicy: a.Policy,
	}
	if rec.Provider == "" {
		rec.Provider = ProviderMux
	}
	if rec.PlaybackPolicy == "" {
		rec.PlaybackPolicy = PlaybackPolicyPublic
	}

	switch s := a.State.(type) {
	case AssetPreparing:
		rec.EncodingStatus = EncodingPreparing
		rec.ExternalAssetID = optional(s.AssetID)
	case AssetReady:
		rec.EncodingStatus = EncodingReady
		rec.ExternalAssetID = optional(s.AssetID)
		rec.PlaybackID = optional(s.PlaybackID)
	case AssetErrored:
		rec.EncodingStatus = EncodingErrored
		rec.ExternalAssetID = optional(s.AssetID)
		rec.LastError = optional(s.Reason)
	default:
		rec.EncodingStatus = EncodingPending
	}
	return rec
}

// Asset rebuilds the typed asset from a stored row, rejecting illegal field combinations.
func (r AssetRecord) Asset() (VideoAsset, error) {
	asset := VideoAsset{VideoID: r.VideoID, Provider: r.Provider, Policy: r.PlaybackPolicy}

	switch r.EncodingStatus {
	case EncodingPending:
		asset.State = AssetPending{}
	case EncodingPreparing:
		asset.State = AssetPreparing{AssetID: value(r.ExternalAssetID)}
	case EncodingReady:
		if value(r.PlaybackID) == "" {
			return VideoAsset{}, fmt.Errorf("%w: ready asset for video %s has no playback id", ErrInvalidAssetRecord, r.VideoID)
		}
		asset.State = AssetReady{AssetID: value(r.ExternalAssetID), PlaybackID: value(r.PlaybackID)}
	case EncodingErrored:
		if r.PlaybackID != nil {
			return VideoAsset{}, fmt.Errorf("%w: errored asset for video %s has a playback id", ErrInvalidAssetRecord, r.VideoID)
		}
		if value(r.LastError) == "" {
			return VideoAsset{}, fmt.Errorf("%w: errored asset for video %s has no error reason", ErrInvalidAssetRecord, r.VideoID)
		}
		asset.State = AssetErrored{AssetID: value(r.ExternalAssetID), Reason: value(r.LastError)}
	default:
		return VideoAsset{}, fmt.Errorf("%w: unknown encoding status %q", ErrInvalidAssetRecord, r.EncodingStatus)
	}

	return asset, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
