// Package objectstore wraps the object-store collaborator: bucket lifecycle,
// presigned transfer URLs, and object deletion.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jawssame7/taskstack/internal/platform/clients"
)

type Store struct {
	client *minio.Client
	bucket string
	region string

	endpoint string
	secure   bool
}

// New creates the object-store client from the resolved configuration.
func New(cfg clients.ObjectStoreConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	return &Store{
		client:   client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: cfg.Endpoint,
		secure:   cfg.UseSSL,
	}, nil
}

// EnsureBucket makes sure the bucket exists before first use.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// PresignUpload returns a time-limited write-capable URL for the key.
func (s *Store) PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("presign upload %s: %w", key, err)
	}
	return u.String(), nil
}

// PresignDownload returns a time-limited read URL for the key.
func (s *Store) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download %s: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes the object.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// ObjectURL is the unsigned retrieval URL stored in file metadata. Its form
// follows the endpoint the store was configured with, so local mode yields
// the emulator address and remote mode the public one.
func (s *Store) ObjectURL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// Probe reports whether the bucket is reachable, for the health endpoint.
func (s *Store) Probe(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("object store probe: %w", err)
	}
	return nil
}
