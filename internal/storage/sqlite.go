package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/waywo/internal/forum"
	"github.com/IshaanNene/waywo/internal/types"
)

// SQLiteCache keeps one row per thread in a SQLite database.
type SQLiteCache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteCache opens or creates the database at path and runs migrations.
func NewSQLiteCache(path string, logger *slog.Logger) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteCache{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_cache", "path", path),
	}, nil
}

func (c *SQLiteCache) Name() string { return "sqlite" }

func (c *SQLiteCache) Load(ctx context.Context, threadID int) ([]forum.Record, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT posts FROM threads WHERE thread_id = ?`, threadID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: err}
	}

	var records []forum.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: fmt.Errorf("decode posts: %w", err)}
	}

	c.logger.Debug("cache loaded", "thread_id", threadID, "posts", len(records))
	return records, nil
}

func (c *SQLiteCache) Save(ctx context.Context, threadID int, records []forum.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: fmt.Errorf("encode posts: %w", err)}
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO threads (thread_id, posts, saved_at) VALUES (?, ?, ?)`,
		threadID, string(data), time.Now().Unix())
	if err != nil {
		return &types.CacheError{Backend: c.Name(), ThreadID: threadID, Err: err}
	}

	c.logger.Info("cache written", "thread_id", threadID, "posts", len(records))
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id INTEGER PRIMARY KEY,
			posts TEXT NOT NULL,
			saved_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
