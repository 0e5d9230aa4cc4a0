package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IshaanNene/waywo/internal/forum"
	"github.com/IshaanNene/waywo/internal/types"
)

// FileCache keeps one JSON document per thread in a directory.
type FileCache struct {
	dir    string
	logger *slog.Logger
}

// NewFileCache creates a file cache rooted at dir.
func NewFileCache(dir string, logger *slog.Logger) (*FileCache, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &FileCache{
		dir:    dir,
		logger: logger.With("component", "file_cache"),
	}, nil
}

func (c *FileCache) Name() string { return "file" }

// Path returns the cache file of a thread.
func (c *FileCache) Path(threadID int) string {
	return filepath.Join(c.dir, fmt.Sprintf("posts_%d.json", threadID))
}

func (c *FileCache) Load(_ context.Context, threadID int) ([]forum.Record, error) {
	path := c.Path(threadID)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: err}
	}

	var records []forum.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: fmt.Errorf("decode %s: %w", path, err)}
	}

	c.logger.Debug("cache loaded", "path", path, "posts", len(records))
	return records, nil
}

func (c *FileCache) Save(_ context.Context, threadID int, records []forum.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: fmt.Errorf("encode JSON: %w", err)}
	}

	path := c.Path(threadID)
	if err := writeFileAtomic(path, data); err != nil {
		return &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: err}
	}

	c.logger.Info("cache written", "path", path, "posts", len(records))
	return nil
}

func (c *FileCache) Close() error { return nil }

// writeFileAtomic writes data to a temp file beside path and renames it
// into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
