package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zulandar/showrunner/internal/config"
)

// ErrPublishDisabled is returned when no publish endpoint is configured.
var ErrPublishDisabled = errors.New("bundle: publishing is not configured")

// LinkExpiry is how long a published bundle's download link stays valid.
const LinkExpiry = 72 * time.Hour

// Publisher uploads exported bundles to an S3-compatible bucket.
type Publisher struct {
	client *minio.Client
	bucket string
}

// NewPublisher connects to the configured bucket endpoint.
func NewPublisher(cfg config.PublishConfig) (*Publisher, error) {
	if cfg.Endpoint == "" {
		return nil, ErrPublishDisabled
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: publish: connect %s: %w", cfg.Endpoint, err)
	}
	return &Publisher{client: client, bucket: cfg.Bucket}, nil
}

// Publish uploads size bytes from r as objectName, creating the bucket if
// needed, and returns a presigned download link.
func (p *Publisher) Publish(ctx context.Context, objectName string, r io.Reader, size int64) (string, error) {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return "", fmt.Errorf("bundle: publish: check bucket %s: %w", p.bucket, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("bundle: publish: create bucket %s: %w", p.bucket, err)
		}
		log.Printf("bundle: publish: created bucket %s", p.bucket)
	}

	_, err = p.client.PutObject(ctx, p.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return "", fmt.Errorf("bundle: publish: upload %s: %w", objectName, err)
	}

	link, err := p.client.PresignedGetObject(ctx, p.bucket, objectName, LinkExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("bundle: publish: sign %s: %w", objectName, err)
	}
	log.Printf("bundle: published %s/%s", p.bucket, objectName)
	return link.String(), nil
}
