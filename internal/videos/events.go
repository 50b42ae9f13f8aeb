package videos

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/vidfriends/ingest/internal/models"
)

// Provider event types understood by the reconciler.
const (
	EventUploadAssetCreated = "video.upload.asset_created"
	EventAssetCreated       = "video.asset.created"
	EventAssetReady         = "video.asset.ready"
	EventAssetErrored       = "video.asset.errored"
)

// Envelope is the outer shape shared by every provider webhook.
type Envelope struct {
	ID        string
	Type      string
	CreatedAt string
	Data      json.RawMessage
}

// ParseEnvelope decodes an authenticated webhook body. The data member must be a JSON object.
func ParseEnvelope(body []byte) (Envelope, error) {
	var raw struct {
		ID        string          `json:"id"`
		Type      *string         `json:"type"`
		CreatedAt string          `json:"created_at"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Envelope{}, validationError("decode envelope: %v", err)
	}
	if raw.Type == nil || strings.TrimSpace(*raw.Type) == "" {
		return Envelope{}, validationError("envelope has no type")
	}
	data := bytes.TrimSpace(raw.Data)
	if len(data) == 0 || data[0] != '{' {
		return Envelope{}, validationError("envelope data must be an object")
	}

	return Envelope{
		ID:        raw.ID,
		Type:      strings.TrimSpace(*raw.Type),
		CreatedAt: raw.CreatedAt,
		Data:      data,
	}, nil
}

// Event is the closed set of webhook events. The concrete type is decided once in ParseEvent.
type Event interface {
	EventType() string
	isEvent()
}

// PlaybackID is one playback id reported on an asset.
type PlaybackID struct {
	ID     string
	Policy models.PlaybackPolicy
}

// UploadAssetCreated reports that a direct upload produced an asset.
type UploadAssetCreated struct {
	UploadID    string
	AssetID     string
	Passthrough string
	Policy      models.PlaybackPolicy
}

// AssetCreated reports that the provider created an asset.
type AssetCreated struct {
	AssetID     string
	Passthrough string
	PlaybackIDs []PlaybackID
}

// AssetReady reports that an asset finished encoding.
type AssetReady struct {
	AssetID     string
	Passthrough string
	PlaybackIDs []PlaybackID
}

// AssetErrored reports that an asset failed to encode.
type AssetErrored struct {
	AssetID     string
	Passthrough string
	PlaybackIDs []PlaybackID
	Messages    []string
}

// Unhandled is any event type the service deliberately ignores.
type Unhandled struct {
	Type string
}

func (UploadAssetCreated) EventType() string { return EventUploadAssetCreated }
func (AssetCreated) EventType() string       { return EventAssetCreated }
func (AssetReady) EventType() string         { return EventAssetReady }
func (AssetErrored) EventType() string       { return EventAssetErrored }
func (u Unhandled) EventType() string        { return u.Type }

func (UploadAssetCreated) isEvent() {}
func (AssetCreated) isEvent()       {}
func (AssetReady) isEvent()         {}
func (AssetErrored) isEvent()       {}
func (Unhandled) isEvent()          {}

type playbackIDPayload struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

type assetPayload struct {
	ID          string              `json:"id"`
	Passthrough string              `json:"passthrough"`
	PlaybackIDs []playbackIDPayload `json:"playback_ids"`
	Errors      *struct {
		Type     string   `json:"type"`
		Messages []string `json:"messages"`
	} `json:"errors"`
}

type uploadPayload struct {
	ID               string `json:"id"`
	AssetID          string `json:"asset_id"`
	NewAssetSettings struct {
		Passthrough    string   `json:"passthrough"`
		PlaybackPolicy []string `json:"playback_policy"`
	} `json:"new_asset_settings"`
}

// ParseEvent validates the envelope data against the schema of its type.
func ParseEvent(env Envelope) (Event, error) {
	switch env.Type {
	case EventUploadAssetCreated:
		var p uploadPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, validationError("decode %s: %v", env.Type, err)
		}
		if strings.TrimSpace(p.AssetID) == "" {
			return nil, validationError("%s has no asset id", env.Type)
		}
		policy := models.PlaybackPolicyPublic
		if len(p.NewAssetSettings.PlaybackPolicy) > 0 {
			parsed, err := models.ParsePlaybackPolicy(p.NewAssetSettings.PlaybackPolicy[0])
			if err != nil {
				return nil, validationError("%s: %v", env.Type, err)
			}
			policy = parsed
		}
		return UploadAssetCreated{
			UploadID:    p.ID,
			AssetID:     strings.TrimSpace(p.AssetID),
			Passthrough: strings.TrimSpace(p.NewAssetSettings.Passthrough),
			Policy:      policy,
		}, nil

	case EventAssetCreated, EventAssetReady, EventAssetErrored:
		var p assetPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, validationError("decode %s: %v", env.Type, err)
		}
		assetID := strings.TrimSpace(p.ID)
		if assetID == "" {
			return nil, validationError("%s has no asset id", env.Type)
		}
		passthrough := strings.TrimSpace(p.Passthrough)

		ids := parsePlaybackIDs(p.PlaybackIDs)

		if env.Type == EventAssetErrored {
			var messages []string
			if p.Errors != nil {
				for _, m := range p.Errors.Messages {
					if m = strings.TrimSpace(m); m != "" {
						messages = append(messages, m)
					}
				}
			}
			return AssetErrored{AssetID: assetID, Passthrough: passthrough, PlaybackIDs: ids, Messages: messages}, nil
		}

		if env.Type == EventAssetReady {
			return AssetReady{AssetID: assetID, Passthrough: passthrough, PlaybackIDs: ids}, nil
		}
		return AssetCreated{AssetID: assetID, Passthrough: passthrough, PlaybackIDs: ids}, nil

	default:
		return Unhandled{Type: env.Type}, nil
	}
}

// parsePlaybackIDs drops entries without an id or with a policy other than public/signed.
func parsePlaybackIDs(raw []playbackIDPayload) []PlaybackID {
	var ids []PlaybackID
	for _, p := range raw {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}
		policy, err := models.ParsePlaybackPolicy(p.Policy)
		if err != nil {
			continue
		}
		ids = append(ids, PlaybackID{ID: id, Policy: policy})
	}
	return ids
}
