// Package engine runs one highlight generation: load or scrape a thread,
// select its highlights and write them out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/fetcher"
	"github.com/IshaanNene/waywo/internal/forum"
	"github.com/IshaanNene/waywo/internal/highlight"
	"github.com/IshaanNene/waywo/internal/observability"
	"github.com/IshaanNene/waywo/internal/scraper"
	"github.com/IshaanNene/waywo/internal/storage"
	"github.com/IshaanNene/waywo/internal/types"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateStopped State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultPosts is the highlight count used when none is requested.
const DefaultPosts = 20

// Options describes one run.
type Options struct {
	ThreadID int
	OutPath  string
	Posts    int
	UseCache bool
}

// Result summarizes a finished run.
type Result struct {
	ThreadID   int
	Pages      int
	Posts      int
	FromCache  bool
	Highlights []*forum.Post
	Duration   time.Duration
}

// Engine wires the fetchers, cache, selector and output writer together.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	pages    fetcher.Fetcher
	quotes   fetcher.Fetcher
	selector *highlight.Selector
	writer   *storage.HighlightWriter

	mu    sync.Mutex
	cache storage.CacheStore
	state atomic.Int32
}

// New creates an Engine from a validated configuration. Listing pages go
// through the configured fetcher; post messages always use HTTP since
// the quote action is a form POST.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	pages, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create page fetcher: %w", err)
	}

	quotes := pages
	if pages.Type() != "http" {
		quotes, err = fetcher.NewHTTPFetcher(cfg, logger)
		if err != nil {
			pages.Close()
			return nil, fmt.Errorf("create quote fetcher: %w", err)
		}
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger.With("component", "engine"),
		metrics:  observability.NewMetrics(logger),
		pages:    pages,
		quotes:   quotes,
		selector: highlight.NewSelector(logger),
		writer:   storage.NewHighlightWriter(logger),
	}, nil
}

// SetCache sets the cache backend. Without one, the backend named in the
// configuration is opened on the first cached run.
func (e *Engine) SetCache(store storage.CacheStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = store
}

// Metrics returns the run counters.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

// Run generates the highlights of one thread. The output file is only
// written when every earlier step succeeded.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) &&
		!e.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return nil, fmt.Errorf("engine is in state %s, cannot run", e.GetState())
	}
	defer e.state.Store(int32(StateStopped))

	start := time.Now()
	desired := opts.Posts
	if desired < 1 {
		desired = 1
	}
	log := e.logger.With("thread_id", opts.ThreadID)
	log.Info("run starting", "posts", desired, "cache", opts.UseCache, "fetcher", e.pages.Type())

	source := &countingSource{
		inner:   forum.NewQuoteSource(e.quotes, e.cfg.Forum.BaseURL, e.cfg.Authentication.SecurityToken, e.logger),
		metrics: e.metrics,
	}
	result := &Result{ThreadID: opts.ThreadID}

	var cache storage.CacheStore
	if opts.UseCache {
		cache = e.openCache(ctx)
	}

	var posts []*forum.Post
	if cache != nil {
		posts = e.loadCached(ctx, cache, opts.ThreadID, source)
		result.FromCache = posts != nil
	}

	if posts == nil {
		tf := scraper.NewThreadFetcher(opts.ThreadID, e.pages, source, e.cfg, e.metrics, e.logger)

		pageCount, err := tf.PageCount(ctx)
		if err != nil {
			return nil, err
		}
		result.Pages = pageCount

		posts, err = tf.FetchAllPosts(ctx, pageCount)
		if err != nil {
			return nil, err
		}
		if len(posts) == 0 {
			return nil, fmt.Errorf("thread %d: %w", opts.ThreadID, types.ErrNoPosts)
		}
	}
	result.Posts = len(posts)

	highlights, err := e.selector.Select(ctx, posts, desired)
	if err != nil {
		return nil, err
	}
	result.Highlights = highlights

	if cache != nil {
		if err := cache.Save(ctx, opts.ThreadID, forum.Records(posts)); err != nil {
			log.Warn("failed to write cache, ignoring", "backend", cache.Name(), "error", err)
		}
	}

	if err := e.writer.Write(ctx, opts.OutPath, highlights); err != nil {
		return nil, err
	}
	e.metrics.HighlightsSelected.Add(float64(len(highlights)))

	if path := e.cfg.Metrics.Textfile; path != "" {
		if err := e.metrics.WriteTextfile(path); err != nil {
			log.Warn("failed to write metrics", "error", err)
		}
	}

	result.Duration = time.Since(start)
	log.Info("run finished",
		"posts", result.Posts,
		"highlights", len(highlights),
		"from_cache", result.FromCache,
		"duration", result.Duration,
	)
	return result, nil
}

// Close releases the fetchers and the cache.
func (e *Engine) Close() error {
	var errs []error
	if err := e.pages.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page fetcher: %w", err))
	}
	if e.quotes != e.pages {
		if err := e.quotes.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close quote fetcher: %w", err))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// openCache returns the cache, opening the configured backend if needed.
// A backend that cannot be opened disables caching for the run.
func (e *Engine) openCache(ctx context.Context) storage.CacheStore {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cache != nil {
		return e.cache
	}

	store, err := storage.NewCacheStore(ctx, &e.cfg.Cache, e.logger)
	if err != nil {
		e.logger.Warn("cache unavailable, continuing without it", "backend", e.cfg.Cache.Backend, "error", err)
		return nil
	}
	e.cache = store
	return store
}

// loadCached restores a thread from the cache, or returns nil on any miss.
func (e *Engine) loadCached(ctx context.Context, cache storage.CacheStore, threadID int, source forum.MessageSource) []*forum.Post {
	records, err := cache.Load(ctx, threadID)
	switch {
	case errors.Is(err, storage.ErrCacheMiss):
		e.metrics.CacheMisses.Inc()
		e.logger.Debug("thread not cached", "thread_id", threadID, "backend", cache.Name())
		return nil
	case err != nil:
		e.metrics.CacheMisses.Inc()
		e.logger.Warn("failed to read cache, ignoring", "thread_id", threadID, "error", err)
		return nil
	case len(records) == 0:
		e.metrics.CacheMisses.Inc()
		e.logger.Warn("cached thread is empty, ignoring", "thread_id", threadID)
		return nil
	}

	e.metrics.CacheHits.Inc()
	e.logger.Info("using cached posts", "thread_id", threadID, "posts", len(records), "backend", cache.Name())
	return forum.RestoreAll(records, &e.cfg.ScoringConfig, source)
}

// countingSource records message fetch outcomes.
type countingSource struct {
	inner   forum.MessageSource
	metrics *observability.Metrics
}

func (s *countingSource) FetchMessage(ctx context.Context, postID int) (string, error) {
	msg, err := s.inner.FetchMessage(ctx, postID)
	if err != nil {
		s.metrics.MessagesFailed.Inc()
		return "", err
	}
	s.metrics.MessagesFetched.Inc()
	return msg, nil
}
