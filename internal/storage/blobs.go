package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gallery/internal/models"
)

// Blobs keeps asset bytes in a MinIO (S3 compatible) bucket.
type Blobs struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewBlobs connects to MinIO and creates the bucket if it does not exist.
func NewBlobs(ctx context.Context, cfg models.MinIOConfig, logger *slog.Logger) (*Blobs, error) {
	const op = "storage.NewBlobs"

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: check bucket: %w", op, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%s: create bucket: %w", op, err)
		}
		logger.Info("created bucket", slog.String("bucket", cfg.Bucket))
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Blobs{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (b *Blobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	const op = "storage.Blobs.Put"

	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key succeeds.
func (b *Blobs) Remove(ctx context.Context, key string) error {
	const op = "storage.Blobs.Remove"

	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (b *Blobs) URL(key string) string {
	return b.publicURL + "/" + key
}
