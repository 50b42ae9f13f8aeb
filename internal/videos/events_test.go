package videos

import (
	"errors"
	"testing"

	"github.com/vidfriends/ingest/internal/models"
)

func mustEvent(t *testing.T, body string) Event {
	t.Helper()
	env, err := ParseEnvelope([]byte(body))
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	event, err := ParseEvent(env)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	return event
}

func TestParseEnvelopeRejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"notJSON":      `{`,
		"array":        `[]`,
		"missingType":  `{"data":{}}`,
		"emptyType":    `{"type":"  ","data":{}}`,
		"numericType":  `{"type":5,"data":{}}`,
		"missingData":  `{"type":"video.asset.ready"}`,
		"nullData":     `{"type":"video.asset.ready","data":null}`,
		"scalarData":   `{"type":"video.asset.ready","data":"x"}`,
		"arrayPayload": `{"type":"video.asset.ready","data":[1]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseEnvelope([]byte(body)); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseEventUploadAssetCreated(t *testing.T) {
	event := mustEvent(t, `{"type":"video.upload.asset_created","data":{"id":"U1","asset_id":"A1","new_asset_settings":{"passthrough":"V","playback_policy":["signed"]}}}`)

	got, ok := event.(UploadAssetCreated)
	if !ok {
		t.Fatalf("expected UploadAssetCreated, got %T", event)
	}
	if got.UploadID != "U1" || got.AssetID != "A1" || got.Passthrough != "V" || got.Policy != models.PlaybackPolicySigned {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestParseEventUploadAssetCreatedDefaultsPolicy(t *testing.T) {
	event := mustEvent(t, `{"type":"video.upload.asset_created","data":{"id":"U1","asset_id":"A1"}}`)

	got := event.(UploadAssetCreated)
	if got.Policy != models.PlaybackPolicyPublic {
		t.Fatalf("expected public default, got %q", got.Policy)
	}
	if got.Passthrough != "" {
		t.Fatalf("expected empty passthrough, got %q", got.Passthrough)
	}
}

func TestParseEventAssetReady(t *testing.T) {
	event := mustEvent(t, `{"type":"video.asset.ready","data":{"id":"A1","passthrough":"V","playback_ids":[{"id":"b","policy":"signed"},{"id":"a","policy":"public"},{"id":"","policy":"public"},{"id":"d","policy":"drm"}]}}`)

	got, ok := event.(AssetReady)
	if !ok {
		t.Fatalf("expected AssetReady, got %T", event)
	}
	if len(got.PlaybackIDs) != 2 {
		t.Fatalf("expected 2 usable playback ids, got %+v", got.PlaybackIDs)
	}
	if got.PlaybackIDs[0] != (PlaybackID{ID: "b", Policy: models.PlaybackPolicySigned}) {
		t.Fatalf("unexpected first playback id: %+v", got.PlaybackIDs[0])
	}
}

func TestParseEventAssetErrored(t *testing.T) {
	event := mustEvent(t, `{"type":"video.asset.errored","data":{"id":"A1","errors":{"type":"invalid_input","messages":["bad codec"," ","truncated file"]}}}`)

	got, ok := event.(AssetErrored)
	if !ok {
		t.Fatalf("expected AssetErrored, got %T", event)
	}
	if len(got.Messages) != 2 || got.Messages[0] != "bad codec" || got.Messages[1] != "truncated file" {
		t.Fatalf("unexpected messages: %q", got.Messages)
	}
}

func TestParseEventUnknownTypeIsUnhandled(t *testing.T) {
	event := mustEvent(t, `{"type":"video.live_stream.idle","data":{"id":"L1"}}`)

	got, ok := event.(Unhandled)
	if !ok {
		t.Fatalf("expected Unhandled, got %T", event)
	}
	if got.EventType() != "video.live_stream.idle" {
		t.Fatalf("unexpected type: %s", got.EventType())
	}
}

func TestParseEventRejectsInvalidSubPayloads(t *testing.T) {
	cases := map[string]string{
		"readyWithoutID":       `{"type":"video.asset.ready","data":{"playback_ids":[]}}`,
		"createdWrongShape":    `{"type":"video.asset.created","data":{"id":7}}`,
		"erroredBadMessages":   `{"type":"video.asset.errored","data":{"id":"A1","errors":{"messages":"x"}}}`,
		"uploadWithoutAsset":   `{"type":"video.upload.asset_created","data":{"id":"U1"}}`,
		"uploadUnknownPolicy":  `{"type":"video.upload.asset_created","data":{"asset_id":"A1","new_asset_settings":{"playback_policy":["private"]}}}`,
		"playbackIDsNotAnList": `{"type":"video.asset.ready","data":{"id":"A1","playback_ids":{}}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(body))
			if err != nil {
				t.Fatalf("ParseEnvelope() error = %v", err)
			}
			if _, err := ParseEvent(env); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}
