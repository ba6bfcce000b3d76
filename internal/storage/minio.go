package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultPresignExpiry is the lifetime of presigned links.
const DefaultPresignExpiry = 7 * 24 * time.Hour

// MinIOConfig configures the MinIO / S3 client used for presigned links.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Prefix        string
	PresignExpiry time.Duration
}

// MinIOClient implements ObjectStorage and LinkPublisher with presigned GET
// links.
type MinIOClient struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
}

// NewMinIOClient creates a client for the configured bucket.
func NewMinIOClient(cfg MinIOConfig) (*MinIOClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket must be provided")
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}

	return &MinIOClient{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		expiry: expiry,
	}, nil
}

// ListObjects lists all objects for a given prefix.
func (c *MinIOClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var results []ObjectInfo
	for object := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("minio list failed: %w", object.Err)
		}
		results = append(results, ObjectInfo{Key: object.Key, Size: object.Size})
	}
	return results, nil
}

// DownloadObject downloads an object to the provided destination path.
func (c *MinIOClient) DownloadObject(ctx context.Context, key, destPath string) error {
	if err := c.client.FGetObject(ctx, c.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("minio download of %s failed: %w", key, err)
	}
	return nil
}

// UploadObject stores data under key.
func (c *MinIOClient) UploadObject(ctx context.Context, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("minio upload of %s failed: %w", key, err)
	}
	return nil
}

// Publish uploads a local output file and returns a presigned download link.
func (c *MinIOClient) Publish(ctx context.Context, localPath string) (string, error) {
	key := ObjectKey(c.prefix, localPath)
	if _, err := c.client.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{ContentType: "text/csv"}); err != nil {
		return "", fmt.Errorf("minio upload of %s failed: %w", localPath, err)
	}

	u, err := c.client.PresignedGetObject(ctx, c.bucket, key, c.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("minio presign of %s failed: %w", key, err)
	}
	return u.String(), nil
}

var (
	_ ObjectStorage = (*MinIOClient)(nil)
	_ LinkPublisher = (*MinIOClient)(nil)
)
