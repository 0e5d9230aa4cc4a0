// Package scraper discovers and reads the listing pages of a forum thread.
package scraper

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/forum"
	"github.com/IshaanNene/waywo/internal/observability"
	"github.com/IshaanNene/waywo/internal/types"
)

// PageFetcher retrieves one listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
}

// ThreadFetcher reads every page of one thread into post seeds.
type ThreadFetcher struct {
	threadID int
	pages    PageFetcher
	source   forum.MessageSource
	cfg      *config.Config
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewThreadFetcher creates a fetcher for threadID. Posts it produces carry
// cfg's scoring rules and read their messages from source.
func NewThreadFetcher(threadID int, pages PageFetcher, source forum.MessageSource, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *ThreadFetcher {
	return &ThreadFetcher{
		threadID: threadID,
		pages:    pages,
		source:   source,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With("component", "thread_fetcher", "thread_id", threadID),
	}
}

// PageURL returns the listing URL of one page of the thread.
func (tf *ThreadFetcher) PageURL(page int) string {
	return fmt.Sprintf("%s/showthread.php?t=%d&page=%d", tf.cfg.Forum.BaseURL, tf.threadID, page)
}

// PageCount fetches the first page and reads the number of pages.
func (tf *ThreadFetcher) PageCount(ctx context.Context) (int, error) {
	resp, err := tf.fetchPage(ctx, 1)
	if err != nil {
		return 0, &types.DiscoveryError{ThreadID: tf.threadID, Err: err}
	}

	doc, err := resp.Document()
	if err != nil {
		return 0, &types.DiscoveryError{ThreadID: tf.threadID, Err: err}
	}

	n, err := parsePageCount(doc)
	if err != nil {
		return 0, &types.DiscoveryError{
			ThreadID: tf.threadID,
			Err:      &types.ParseError{URL: resp.Request.URLString(), Selector: lastPageSelector, Err: err},
		}
	}

	tf.logger.Info("thread has pages", "pages", n)
	return n, nil
}

// FetchAllPosts reads pages 1..pageCount concurrently. A page that fails
// is logged and contributes no posts; it never stops its siblings. The
// opening post is skipped. Posts are returned sorted by id.
func (tf *ThreadFetcher) FetchAllPosts(ctx context.Context, pageCount int) ([]*forum.Post, error) {
	var (
		mu    sync.Mutex
		posts = make(map[int]*forum.Post)
	)

	courtesy := pageCount >= tf.cfg.Fetcher.PolitenessThreshold && tf.cfg.Fetcher.PolitenessDelay > 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tf.cfg.Fetcher.Concurrency)

	for page := 1; page <= pageCount; page++ {
		g.Go(func() error {
			seeds, err := tf.scrapePage(gctx, page)
			if err != nil {
				tf.metrics.PagesFailed.Inc()
				tf.logger.Warn("failed to scrape page, ignoring",
					"error", &types.PageFetchError{ThreadID: tf.threadID, Page: page, Err: err})
			} else {
				tf.metrics.PagesFetched.Inc()
				mu.Lock()
				for _, seed := range seeds {
					if _, dup := posts[seed.ID]; dup {
						tf.metrics.DuplicatePosts.Inc()
						tf.logger.Warn("post listed on more than one page", "post_id", seed.ID, "page", page)
					}
					posts[seed.ID] = forum.NewPost(seed.ID, seed.Ratings, &tf.cfg.ScoringConfig, tf.source)
				}
				mu.Unlock()
			}

			if courtesy {
				select {
				case <-gctx.Done():
				case <-time.After(tf.cfg.Fetcher.PolitenessDelay):
				}
			}
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]*forum.Post, 0, len(posts))
	for _, p := range posts {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b *forum.Post) int { return cmp.Compare(a.ID, b.ID) })

	tf.metrics.PostsScraped.Add(float64(len(result)))
	tf.logger.Info("thread scraped", "pages", pageCount, "posts", len(result))
	return result, nil
}

// scrapePage fetches and parses one listing page.
func (tf *ThreadFetcher) scrapePage(ctx context.Context, page int) ([]postSeed, error) {
	tf.logger.Debug("scraping page", "page", page)

	resp, err := tf.fetchPage(ctx, page)
	if err != nil {
		return nil, err
	}

	root, err := resp.Node()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}

	seeds, err := parsePosts(root)
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Selector: ratingsXPath, Err: err}
	}

	// Every page-1 listing opens with the thread's original post.
	if page == 1 {
		seeds = seeds[1:]
	}
	return seeds, nil
}

func (tf *ThreadFetcher) fetchPage(ctx context.Context, page int) (*types.Response, error) {
	req, err := types.NewRequest(tf.PageURL(page))
	if err != nil {
		return nil, err
	}
	req.Tag = types.TagListing

	resp, err := tf.pages.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, &types.FetchError{URL: req.URLString(), Err: types.ErrEmptyResponse}
	}
	return resp, nil
}
