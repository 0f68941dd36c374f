package storage

import (
	"context"
	"fmt"

	appconfig "objstore/internal/config"

	"go.uber.org/zap"
)

// NewBackend builds the transport named by cfg.Driver once, for reuse across
// calls. localRoot is used by the local driver when cfg.RootDir is empty.
func NewBackend(ctx context.Context, cfg appconfig.StoreConfig, localRoot string) (Backend, error) {
	switch cfg.Driver {
	case appconfig.DriverS3, "":
		return NewS3Backend(ctx, cfg)
	case appconfig.DriverMinio:
		return NewMinioBackend(cfg)
	case appconfig.DriverGCS:
		return NewGCSBackend(ctx, cfg)
	case appconfig.DriverLocal:
		root := cfg.RootDir
		if root == "" {
			root = localRoot
		}
		if root == "" {
			return nil, fmt.Errorf("local driver needs a root directory")
		}
		return NewLocalBackend(root), nil
	case appconfig.DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func NewFromConfig(ctx context.Context, cfg appconfig.StoreConfig, localRoot string, logger *zap.Logger) (*Client, error) {
	backend, err := NewBackend(ctx, cfg, localRoot)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With(zap.String("driver", cfg.Driver))
	}
	return New(backend, WithLogger(logger)), nil
}
