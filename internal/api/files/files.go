// Package files turns stored avatar paths into URLs clients can fetch.
package files

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Static serves files from the API host under /files
type Static struct {
	baseURL string
}

func NewStatic(baseURL string) *Static {
	return &Static{baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Static) URL(_ context.Context, path string) (string, error) {
	return s.baseURL + "/files/" + url.PathEscape(path), nil
}

// MinIOConfig holds object storage settings
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	URLExpiry time.Duration
}

// MinIO issues presigned GET URLs for objects in a bucket
type MinIO struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &MinIO{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (m *MinIO) URL(ctx context.Context, path string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, path, m.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", path, err)
	}
	return u.String(), nil
}
