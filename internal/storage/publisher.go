package storage

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxPublishRetries = 3
	basePublishDelay  = 1 * time.Second
	maxPublishDelay   = 15 * time.Second
)

// Publisher mirrors finished artifacts to an S3-compatible bucket so they
// survive the API host and can be served from a CDN. It is optional: when
// not configured the local artifact store is the only copy.
type Publisher struct {
	client *minio.Client
	bucket string
}

func NewPublisher(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Publisher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &Publisher{client: client, bucket: bucket}, nil
}

// Publish uploads the reel and, when present, its thumbnail. Objects are
// keyed <jobID>.mp4 / <jobID>.jpg so re-published jobs overwrite in place.
func (p *Publisher) Publish(ctx context.Context, jobID, videoPath, thumbnailPath string) error {
	if err := p.ensureBucket(ctx); err != nil {
		return err
	}

	if err := p.putWithRetry(ctx, jobID+".mp4", videoPath, "video/mp4"); err != nil {
		return fmt.Errorf("failed to publish video: %w", err)
	}

	if thumbnailPath != "" {
		if err := p.putWithRetry(ctx, jobID+".jpg", thumbnailPath, "image/jpeg"); err != nil {
			return fmt.Errorf("failed to publish thumbnail: %w", err)
		}
	}

	return nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (p *Publisher) putWithRetry(ctx context.Context, objectName, localPath, contentType string) error {
	var lastErr error
	for attempt := 0; attempt <= maxPublishRetries; attempt++ {
		if attempt > 0 {
			delay := publishRetryDelay(attempt)
			log.Printf("[Publisher] Upload retry %d/%d for %s (waiting %v)...", attempt, maxPublishRetries, objectName, delay)

			select {
			case <-ctx.Done():
				return fmt.Errorf("publish cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		_, err := p.client.FPutObject(ctx, p.bucket, objectName, localPath, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err == nil {
			if attempt > 0 {
				log.Printf("[Publisher] Upload succeeded on attempt %d for %s", attempt+1, objectName)
			}
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("upload failed after %d attempts: %w", maxPublishRetries+1, lastErr)
}

// publishRetryDelay calculates exponential backoff with jitter: base * 2^attempt + random jitter
func publishRetryDelay(attempt int) time.Duration {
	delay := float64(basePublishDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxPublishDelay) {
		delay = float64(maxPublishDelay)
	}
	// Add 0–25% jitter to avoid thundering herd
	jitter := delay * 0.25 * rand.Float64()
	return time.Duration(delay + jitter)
}
