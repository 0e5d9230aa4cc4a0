// Package waywo provides a public SDK for embedding the highlight
// generator as a library.
//
// Example usage:
//
//	gen, err := waywo.NewGenerator(
//	    waywo.WithBaseURL("http://facepunch.com"),
//	    waywo.WithSession("my agent", "token", waywo.Cookie{Name: "bb_sessionhash", Value: "..."}),
//	    waywo.WithFileCache("./cache"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer gen.Close()
//
//	res, err := gen.Generate(ctx, 1234567, "highlights.txt", 20)
package waywo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/engine"
	"github.com/IshaanNene/waywo/internal/types"
)

// Cookie is one session cookie sent with every forum request.
type Cookie struct {
	Name  string
	Value string
}

// Highlight is one selected post.
type Highlight struct {
	PostID  int
	Author  string
	Ratings map[string]int
	Score   float64
	Message string
}

// Result summarizes a generation.
type Result struct {
	ThreadID   int
	Pages      int
	Posts      int
	FromCache  bool
	Highlights []Highlight
	Duration   time.Duration
}

// settings collects option values before the engine is built.
type settings struct {
	cfg           *config.Config
	logger        *slog.Logger
	cache         bool
	customRatings bool
	customContent bool
}

// Option configures a Generator.
type Option func(*settings)

// WithBaseURL sets the forum root, e.g. "http://facepunch.com".
func WithBaseURL(u string) Option {
	return func(s *settings) { s.cfg.Forum.BaseURL = u }
}

// WithEncoding sets the forum's legacy page encoding.
func WithEncoding(name string) Option {
	return func(s *settings) { s.cfg.Forum.Encoding = name }
}

// WithSession attaches a pre-obtained user agent, security token and cookies.
func WithSession(userAgent, securityToken string, cookies ...Cookie) Option {
	return func(s *settings) {
		if userAgent != "" {
			s.cfg.Authentication.UserAgent = userAgent
		}
		s.cfg.Authentication.SecurityToken = securityToken
		s.cfg.Authentication.Cookies = s.cfg.Authentication.Cookies[:0]
		for _, c := range cookies {
			s.cfg.Authentication.Cookies = append(s.cfg.Authentication.Cookies, config.Cookie{Name: c.Name, Value: c.Value})
		}
	}
}

// WithConcurrency sets the number of pages fetched at once.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.cfg.Fetcher.Concurrency = n }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.Fetcher.RequestTimeout = d }
}

// WithPoliteness sets the pause each worker takes after its page when a
// thread has at least threshold pages.
func WithPoliteness(delay time.Duration, threshold int) Option {
	return func(s *settings) {
		s.cfg.Fetcher.PolitenessDelay = delay
		s.cfg.Fetcher.PolitenessThreshold = threshold
	}
}

// WithBrowser fetches listing pages through a headless browser.
func WithBrowser(stealth bool) Option {
	return func(s *settings) {
		s.cfg.Fetcher.Type = "browser"
		s.cfg.Fetcher.Stealth = stealth
	}
}

// WithRatingWeight adds a rating rule. The first call replaces the stock
// rating rules; rules are matched in the order they were added.
func WithRatingWeight(score float64, labels ...string) Option {
	return func(s *settings) {
		if !s.customRatings {
			s.cfg.Ratings = nil
			s.customRatings = true
		}
		s.cfg.Ratings = append(s.cfg.Ratings, config.RatingRule{Score: score, Labels: labels})
	}
}

// WithContentWeight adds a content rule. extensions may be nil to match
// any URL. The first call replaces the stock content rules.
func WithContentWeight(score float64, tags, extensions []string) Option {
	return func(s *settings) {
		if !s.customContent {
			s.cfg.Content = nil
			s.customContent = true
		}
		s.cfg.Content = append(s.cfg.Content, config.ContentRule{Score: score, Tags: tags, Extensions: extensions})
	}
}

// WithDefaults sets the weights of unmatched ratings and content tags.
func WithDefaults(ratings, content float64) Option {
	return func(s *settings) {
		s.cfg.RatingsDefault = ratings
		s.cfg.ContentDefault = content
	}
}

// WithFileCache caches threads as JSON files in dir.
func WithFileCache(dir string) Option {
	return func(s *settings) {
		s.cache = true
		s.cfg.Cache.Backend = "file"
		s.cfg.Cache.Dir = dir
	}
}

// WithSQLiteCache caches threads in a SQLite database.
func WithSQLiteCache(path string) Option {
	return func(s *settings) {
		s.cache = true
		s.cfg.Cache.Backend = "sqlite"
		s.cfg.Cache.Path = path
	}
}

// WithMongoCache caches threads in a MongoDB collection.
func WithMongoCache(uri, database, collection string) Option {
	return func(s *settings) {
		s.cache = true
		s.cfg.Cache.Backend = "mongodb"
		s.cfg.Cache.MongoURI = uri
		s.cfg.Cache.Database = database
		s.cfg.Cache.Collection = collection
	}
}

// WithMetricsTextfile writes run counters to path after each generation.
func WithMetricsTextfile(path string) Option {
	return func(s *settings) { s.cfg.Metrics.Textfile = path }
}

// WithLogger sets the logger. The default logs warnings to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithVerbose enables debug-level logging on the default logger.
func WithVerbose() Option {
	return func(s *settings) { s.cfg.Logging.Level = "debug" }
}

// Generator produces thread highlights.
type Generator struct {
	cfg    *config.Config
	engine *engine.Engine
	cache  bool
}

// NewGenerator creates a Generator with the given options applied to the
// built-in defaults.
func NewGenerator(opts ...Option) (*Generator, error) {
	return newGenerator(config.DefaultConfig(), opts)
}

// NewGeneratorFromFile loads a configuration document, then applies opts.
func NewGeneratorFromFile(path string, opts ...Option) (*Generator, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return newGenerator(cfg, opts)
}

func newGenerator(cfg *config.Config, opts []Option) (*Generator, error) {
	s := &settings{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	cfg.Normalize()
	if err := config.Validate(cfg); err != nil {
		return nil, &types.ConfigError{Err: err}
	}

	logger := s.logger
	if logger == nil {
		level := slog.LevelWarn
		if cfg.Logging.Level == "debug" {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &Generator{cfg: cfg, engine: eng, cache: s.cache}, nil
}

// Generate writes the best posts of threadID to outPath. posts below 1
// is treated as 1.
func (g *Generator) Generate(ctx context.Context, threadID int, outPath string, posts int) (*Result, error) {
	res, err := g.engine.Run(ctx, engine.Options{
		ThreadID: threadID,
		OutPath:  outPath,
		Posts:    posts,
		UseCache: g.cache,
	})
	if err != nil {
		return nil, err
	}

	out := &Result{
		ThreadID:  res.ThreadID,
		Pages:     res.Pages,
		Posts:     res.Posts,
		FromCache: res.FromCache,
		Duration:  res.Duration,
	}
	for _, p := range res.Highlights {
		// Selection already read every value below; these are cache hits.
		msg, _ := p.Message(ctx)
		author, _ := p.Username(ctx)
		mult, _ := p.ContentMultiplier(ctx)
		out.Highlights = append(out.Highlights, Highlight{
			PostID:  p.ID,
			Author:  author,
			Ratings: p.Ratings,
			Score:   p.RatingsValue() * mult,
			Message: msg,
		})
	}
	return out, nil
}

// Stats returns the run counters accumulated so far.
func (g *Generator) Stats() map[string]float64 {
	stats := make(map[string]float64)
	families, err := g.engine.Metrics().Registry().Gather()
	if err != nil {
		return stats
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				stats[mf.GetName()] = c.GetValue()
			}
		}
	}
	return stats
}

// Close releases network and cache resources.
func (g *Generator) Close() error {
	return g.engine.Close()
}
