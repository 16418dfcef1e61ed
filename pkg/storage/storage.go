package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store is a flat key/value object store.
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, contentType string) error
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}

type Config struct {
	// "" 关闭存储, "local" | "minio" | "cos"
	Driver       string `env:"STORAGE_DRIVER"`
	LocalPath    string `env:"STORAGE_LOCAL_PATH"`
	LocalBaseURL string `env:"STORAGE_LOCAL_BASE_URL"`
	Minio        MinioConfig
	COS          COSConfig
}

// NewStore returns nil, nil when no driver is configured.
func NewStore(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "":
		return nil, nil
	case "local":
		return NewLocalStore(cfg.LocalPath, cfg.LocalBaseURL)
	case "minio":
		return NewMinioStore(cfg.Minio)
	case "cos":
		return NewCOSStore(cfg.COS)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
