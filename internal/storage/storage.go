package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/dimitrije/lectern-api/internal/config"
)

// Provider stores media objects under slash-separated keys.
type Provider interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New selects the provider named by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalProvider(cfg.LocalPath, cfg.PublicURL)
	case "minio", "s3":
		return NewMinioProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
