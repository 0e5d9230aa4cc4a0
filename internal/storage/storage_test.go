package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/forum"
	"github.com/IshaanNene/waywo/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleRecords() []forum.Record {
	msg := "[QUOTE=garry;7]Look at this[img]http://i.test/a.gif[/img][/QUOTE]"
	return []forum.Record{
		{ID: 7, Ratings: map[string]int{"Winner": 3, "Funny": 1}, Message: &msg},
		{ID: 9, Ratings: map[string]int{}},
	}
}

func openBackends(t *testing.T) []CacheStore {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileCache(filepath.Join(dir, "files"), testLogger)
	if err != nil {
		t.Fatalf("file cache: %v", err)
	}
	sqlite, err := NewSQLiteCache(filepath.Join(dir, "cache.db"), testLogger)
	if err != nil {
		t.Fatalf("sqlite cache: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return []CacheStore{file, sqlite}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, store := range openBackends(t) {
		t.Run(store.Name(), func(t *testing.T) {
			want := sampleRecords()
			if err := store.Save(ctx, 42, want); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Load(ctx, 42)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("loaded %+v, want %+v", got, want)
			}
		})
	}
}

func TestCacheSaveReplaces(t *testing.T) {
	ctx := context.Background()
	for _, store := range openBackends(t) {
		t.Run(store.Name(), func(t *testing.T) {
			if err := store.Save(ctx, 1, sampleRecords()); err != nil {
				t.Fatalf("Save: %v", err)
			}
			second := []forum.Record{{ID: 100, Ratings: map[string]int{"Useful": 2}}}
			if err := store.Save(ctx, 1, second); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Load(ctx, 1)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, second) {
				t.Errorf("loaded %+v, want %+v", got, second)
			}
		})
	}
}

func TestCacheMiss(t *testing.T) {
	for _, store := range openBackends(t) {
		t.Run(store.Name(), func(t *testing.T) {
			_, err := store.Load(context.Background(), 404)
			if !errors.Is(err, ErrCacheMiss) {
				t.Fatalf("expected ErrCacheMiss, got %v", err)
			}
		})
	}
}

func TestFileCacheCorrupt(t *testing.T) {
	store, err := NewFileCache(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("file cache: %v", err)
	}
	if err := os.WriteFile(store.Path(5), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = store.Load(context.Background(), 5)
	var cacheErr *types.CacheError
	if !errors.As(err, &cacheErr) || cacheErr.ThreadID != 5 {
		t.Fatalf("expected CacheError for thread 5, got %v", err)
	}
}

func TestFileCachePath(t *testing.T) {
	store, err := NewFileCache(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("file cache: %v", err)
	}
	if got := filepath.Base(store.Path(1234)); got != "posts_1234.json" {
		t.Errorf("cache file = %s", got)
	}
}

func TestNewCacheStoreUnsupported(t *testing.T) {
	cfg := &config.CacheConfig{Backend: "redis"}
	if _, err := NewCacheStore(context.Background(), cfg, testLogger); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNewCacheStoreDefaultsToFile(t *testing.T) {
	cfg := &config.CacheConfig{Dir: t.TempDir()}
	store, err := NewCacheStore(context.Background(), cfg, testLogger)
	if err != nil {
		t.Fatalf("NewCacheStore: %v", err)
	}
	defer store.Close()
	if store.Name() != "file" {
		t.Errorf("backend = %s", store.Name())
	}
}
