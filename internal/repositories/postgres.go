package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidfriends/ingest/internal/db"
	"github.com/vidfriends/ingest/internal/models"
	"github.com/vidfriends/ingest/internal/videos"
)

// PostgresAccountRepository reads caller accounts from PostgreSQL.
type PostgresAccountRepository struct {
	pool db.Pool
}

// NewPostgresAccountRepository constructs an account repository backed by PostgreSQL.
func NewPostgresAccountRepository(pool db.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// AccountType returns the account type of the user.
func (r *PostgresAccountRepository) AccountType(ctx context.Context, userID string) (models.AccountType, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", acquireError(err)
	}
	defer conn.Release()

	var accountType string
	err = conn.QueryRow(ctx, `SELECT account_type FROM accounts WHERE id = $1`, userID).Scan(&accountType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", storageError("select account type", err)
	}

	return models.AccountType(accountType), nil
}

// PostgresVideoRepository reads catalog videos from PostgreSQL.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// FindVideo loads a video by id.
func (r *PostgresVideoRepository) FindVideo(ctx context.Context, videoID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, acquireError(err)
	}
	defer conn.Release()

	var (
		video       models.Video
		status      string
		publishedAt *time.Time
	)
	err = conn.QueryRow(ctx, `
        SELECT id, status, published_at
        FROM videos
        WHERE id = $1
    `, videoID).Scan(&video.ID, &status, &publishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, storageError("select video", err)
	}

	video.Status = models.VideoStatus(status)
	if publishedAt != nil {
		t := publishedAt.UTC()
		video.PublishedAt = &t
	}
	return video, nil
}

// PostgresAssetRepository persists one hosted-asset row per video.
type PostgresAssetRepository struct {
	pool db.Pool
}

// NewPostgresAssetRepository constructs an asset repository backed by PostgreSQL.
func NewPostgresAssetRepository(pool db.Pool) *PostgresAssetRepository {
	return &PostgresAssetRepository{pool: pool}
}

const assetColumns = `video_id, provider, external_asset_id, playback_id, playback_policy, encoding_status, last_error`

// FindByVideoID loads the asset row of a video.
func (r *PostgresAssetRepository) FindByVideoID(ctx context.Context, videoID string) (models.VideoAsset, error) {
	return r.findOne(ctx, `SELECT `+assetColumns+` FROM video_assets WHERE video_id = $1`, videoID)
}

// FindByExternalAssetID loads the asset row carrying the provider's asset id.
func (r *PostgresAssetRepository) FindByExternalAssetID(ctx context.Context, assetID string) (models.VideoAsset, error) {
	if assetID == "" {
		return models.VideoAsset{}, ErrNotFound
	}
	return r.findOne(ctx, `
        SELECT `+assetColumns+`
        FROM video_assets
        WHERE external_asset_id = $1
        ORDER BY updated_at DESC
        LIMIT 1
    `, assetID)
}

func (r *PostgresAssetRepository) findOne(ctx context.Context, query string, arg string) (models.VideoAsset, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoAsset{}, acquireError(err)
	}
	defer conn.Release()

	var (
		rec            models.AssetRecord
		policy, status string
	)
	err = conn.QueryRow(ctx, query, arg).Scan(
		&rec.VideoID, &rec.Provider, &rec.ExternalAssetID, &rec.PlaybackID, &policy, &status, &rec.LastError,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoAsset{}, ErrNotFound
		}
		return models.VideoAsset{}, storageError("select video asset", err)
	}
	rec.PlaybackPolicy = models.PlaybackPolicy(policy)
	rec.EncodingStatus = models.EncodingStatus(status)

	asset, err := rec.Asset()
	if err != nil {
		return models.VideoAsset{}, fmt.Errorf("load video asset: %w", err)
	}
	return asset, nil
}

// Apply replaces the video's asset row and mirrors the encoding status onto
// the video in one transaction. Archived videos keep their status.
func (r *PostgresAssetRepository) Apply(ctx context.Context, asset models.VideoAsset) (models.VideoStatus, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", acquireError(err)
	}
	defer conn.Release()

	rec := asset.Record()
	var result models.VideoStatus

	err = inTx(ctx, conn, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM videos WHERE id = $1 FOR UPDATE`, rec.VideoID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return storageError("lock video", err)
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO video_assets (`+assetColumns+`, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, now())
            ON CONFLICT (video_id)
            DO UPDATE SET provider = EXCLUDED.provider,
                external_asset_id = EXCLUDED.external_asset_id,
                playback_id = EXCLUDED.playback_id,
                playback_policy = EXCLUDED.playback_policy,
                encoding_status = EXCLUDED.encoding_status,
                last_error = EXCLUDED.last_error,
                updated_at = EXCLUDED.updated_at
        `, rec.VideoID, rec.Provider, rec.ExternalAssetID, rec.PlaybackID, string(rec.PlaybackPolicy), string(rec.EncodingStatus), rec.LastError); err != nil {
			return storageError("upsert video asset", err)
		}

		result = models.VideoStatus(current)
		if result == models.VideoStatusArchived {
			return nil
		}

		result = rec.EncodingStatus.VideoStatus()
		if _, err := tx.Exec(ctx, `
            UPDATE videos
            SET status = $2, updated_at = now()
            WHERE id = $1
        `, rec.VideoID, string(result)); err != nil {
			return storageError("update video status", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return result, nil
}

var _ videos.AccountLookup = (*PostgresAccountRepository)(nil)
var _ videos.VideoLookup = (*PostgresVideoRepository)(nil)
var _ videos.AssetStore = (*PostgresAssetRepository)(nil)
