// Package gcs fetches the dataset from a Google Cloud Storage object.
package gcs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"healthdash/internal/core"
	applog "healthdash/internal/log"
	"healthdash/internal/source"
)

// Source downloads gs://Bucket/Object and decodes it by extension.
// It assumes Application Default Credentials are configured.
type Source struct {
	client  *storage.Client
	bucket  string
	object  string
	options source.ReadOptions
}

var _ source.Source = (*Source)(nil)

// New creates a storage client for the given object.
func New(ctx context.Context, bucket, object string, opts source.ReadOptions) (*Source, error) {
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("gcs source needs bucket and object, got %q/%q", bucket, object)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Source{client: client, bucket: bucket, object: object, options: opts}, nil
}

func (s *Source) Name() string {
	return "gs://" + s.bucket + "/" + s.object
}

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context) (core.RawTable, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open %s: %w", s.Name(), err)
	}
	defer reader.Close()

	slog.InfoContext(ctx, "Reading dataset from GCS", applog.FieldComponent, applog.ComponentSource, "bucket", s.bucket, "object", s.object, "size", reader.Attrs.Size)

	raw, err := source.Decode(s.object, reader, s.options)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("decode %s: %w", s.Name(), err)
	}
	return raw, nil
}

// Close releases the storage client.
func (s *Source) Close() error {
	return s.client.Close()
}

// ParseURI splits gs://bucket/path/to/object into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
