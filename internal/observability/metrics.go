package observability

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks counters for one highlight run. Each instance owns its
// registry so runs and tests never share state.
type Metrics struct {
	PagesFetched       prometheus.Counter
	PagesFailed        prometheus.Counter
	PostsScraped       prometheus.Counter
	DuplicatePosts     prometheus.Counter
	MessagesFetched    prometheus.Counter
	MessagesFailed     prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	HighlightsSelected prometheus.Counter

	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waywo",
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		PagesFetched:       counter("pages_fetched_total", "Thread pages fetched and parsed"),
		PagesFailed:        counter("pages_failed_total", "Thread pages that contributed no posts"),
		PostsScraped:       counter("posts_scraped_total", "Posts read from thread pages"),
		DuplicatePosts:     counter("posts_duplicate_total", "Post ids seen on more than one page"),
		MessagesFetched:    counter("messages_fetched_total", "Post messages retrieved"),
		MessagesFailed:     counter("messages_failed_total", "Post message retrievals that failed"),
		CacheHits:          counter("cache_hits_total", "Thread cache hits"),
		CacheMisses:        counter("cache_misses_total", "Thread cache misses"),
		HighlightsSelected: counter("highlights_selected_total", "Posts written as highlights"),
		registry:           prometheus.NewRegistry(),
		logger:             logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.PagesFetched, m.PagesFailed, m.PostsScraped, m.DuplicatePosts,
		m.MessagesFetched, m.MessagesFailed, m.CacheHits, m.CacheMisses,
		m.HighlightsSelected,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the counters in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	m.logger.Debug("metrics written", "path", path)
	return nil
}
