package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/vidfriends/ingest/internal/config"
)

// Uploader is the subset of manager.Uploader used by the archive.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// RawEvent is an authenticated webhook body as received from the provider.
type RawEvent struct {
	EventID    string
	EventType  string
	ReceivedAt time.Time
	Body       []byte
}

// S3Archive keeps an audit copy of provider webhook bodies in an S3-compatible bucket.
type S3Archive struct {
	uploader Uploader
	bucket   string
	prefix   string
	newID    func() string
}

// NewS3Archive configures an uploader targeting the archive bucket.
func NewS3Archive(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Archive, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("s3 archive: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return NewS3ArchiveWithUploader(uploader, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ArchiveWithUploader builds an archive on an existing uploader.
func NewS3ArchiveWithUploader(uploader Uploader, bucket, prefix string) *S3Archive {
	return &S3Archive{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		newID:    uuid.NewString,
	}
}

// Archive stores the raw body under <prefix>/<yyyy>/<mm>/<dd>/<event type>/<event id>.json
// and returns the object key. Objects are private.
func (a *S3Archive) Archive(ctx context.Context, event RawEvent) (string, error) {
	key := a.key(event)

	metadata := map[string]string{"event-type": event.EventType}
	if event.EventID != "" {
		metadata["event-id"] = event.EventID
	}

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(event.Body),
		ContentType: aws.String("application/json"),
		Metadata:    metadata,
	})
	if err != nil {
		return "", fmt.Errorf("s3 archive upload %s: %w", key, err)
	}
	return key, nil
}

func (a *S3Archive) key(event RawEvent) string {
	received := event.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	received = received.UTC()

	id := sanitize(event.EventID)
	if id == "" {
		id = a.newID()
	}
	eventType := sanitize(event.EventType)
	if eventType == "" {
		eventType = "unknown"
	}

	return path.Join(a.prefix, received.Format("2006/01/02"), eventType, id+".json")
}

func sanitize(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(value))
}
