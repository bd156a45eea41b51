package kv

import (
	"context"
	"fmt"

	"github.com/wadjakorntonsri/linkbio/pkg/config"
)

// Open builds the backend named by cfg.StoreDriver and wraps it in a Store.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.StoreDriver {
	case "", "file":
		backend, err = NewFileBackend(cfg.DataDir)
	case "sqlite":
		backend, err = NewSQLiteBackend(cfg.DatabaseURL)
	case "redis":
		backend, err = NewRedisBackend(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case "memory":
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return NewStore(backend), nil
}
