package videos

import (
	"context"
	"sync"

	"github.com/vidfriends/ingest/internal/models"
)

// memStore is an in-memory AssetStore and VideoLookup mirroring the Postgres semantics.
type memStore struct {
	mu       sync.Mutex
	videos   map[string]models.VideoStatus
	assets   map[string]models.AssetRecord
	applyErr error
	findErr  error
	applies  int
}

func newMemStore(videoIDs ...string) *memStore {
	s := &memStore{
		videos: make(map[string]models.VideoStatus),
		assets: make(map[string]models.AssetRecord),
	}
	for _, id := range videoIDs {
		s.videos[id] = models.VideoStatusDraft
	}
	return s
}

func (s *memStore) FindVideo(_ context.Context, videoID string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.videos[videoID]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return models.Video{ID: videoID, Status: status}, nil
}

func (s *memStore) FindByExternalAssetID(_ context.Context, assetID string) (models.VideoAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return models.VideoAsset{}, s.findErr
	}
	for _, rec := range s.assets {
		if rec.ExternalAssetID != nil && *rec.ExternalAssetID == assetID {
			return rec.Asset()
		}
	}
	return models.VideoAsset{}, ErrNotFound
}

func (s *memStore) Apply(_ context.Context, asset models.VideoAsset) (models.VideoStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return "", s.applyErr
	}
	current, ok := s.videos[asset.VideoID]
	if !ok {
		return "", ErrNotFound
	}
	s.applies++
	s.assets[asset.VideoID] = asset.Record()
	if current == models.VideoStatusArchived {
		return current, nil
	}
	next := asset.State.EncodingStatus().VideoStatus()
	s.videos[asset.VideoID] = next
	return next, nil
}

func (s *memStore) record(videoID string) (models.AssetRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.assets[videoID]
	return rec, ok
}

func (s *memStore) videoStatus(videoID string) models.VideoStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[videoID]
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
