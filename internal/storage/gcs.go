// Package storage provides the object-store adapter for finalized
// generation results.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/virtustage/creditcore/internal/config"
	"github.com/virtustage/creditcore/internal/generation"
)

const maxAssetSizeBytes = 20 << 20 // 20MB

// GCSStore implements generation.BlobStore backed by a Google Cloud Storage
// bucket. Fetch goes over plain HTTP because upstream result URLs are not
// GCS objects.
type GCSStore struct {
	client        *gcs.Client
	httpClient    *http.Client
	bucket        string
	publicBaseURL string
}

// NewGCSStore creates a GCSStore for the configured bucket.
func NewGCSStore(ctx context.Context, cfg *config.StorageConfig, fetchTimeout time.Duration) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required")
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client:        client,
		httpClient:    &http.Client{Timeout: fetchTimeout},
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Fetch downloads the asset at the given URL.
func (s *GCSStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset body: %w", err)
	}
	if len(data) > maxAssetSizeBytes {
		return nil, fmt.Errorf("asset exceeds %d bytes", maxAssetSizeBytes)
	}

	return data, nil
}

// Put uploads data under the given key and returns its public URL.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := wc.Write(data); err != nil {
		// Closing aborts the resumable upload session the writer opened.
		_ = wc.Close() //nolint:errcheck // the write error is the one worth reporting
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close storage writer: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key), nil
}

// Close releases the underlying storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ generation.BlobStore = (*GCSStore)(nil)
