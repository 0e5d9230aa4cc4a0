// Package storage persists scraped threads between runs and writes the
// highlight file.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/forum"
)

// ErrCacheMiss is returned by Load when nothing is stored for a thread.
var ErrCacheMiss = errors.New("thread not cached")

// CacheStore is the interface for all thread cache backends.
type CacheStore interface {
	// Load returns the stored posts of a thread, or ErrCacheMiss.
	Load(ctx context.Context, threadID int) ([]forum.Record, error)

	// Save replaces the stored posts of a thread.
	Save(ctx context.Context, threadID int, records []forum.Record) error

	// Close releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// NewCacheStore opens the backend selected by cfg.Backend.
func NewCacheStore(ctx context.Context, cfg *config.CacheConfig, logger *slog.Logger) (CacheStore, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileCache(cfg.Dir, logger)
	case "sqlite":
		return NewSQLiteCache(cfg.Path, logger)
	case "mongodb":
		return NewMongoCache(ctx, cfg.MongoURI, cfg.Database, cfg.Collection, logger)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
