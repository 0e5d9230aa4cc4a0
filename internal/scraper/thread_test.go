package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/fetcher"
	"github.com/IshaanNene/waywo/internal/observability"
	"github.com/IshaanNene/waywo/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fixturePost struct {
	id      int
	ratings map[string]int
}

// listingHTML renders a thread page in the forum's markup.
func listingHTML(threadID, lastPage int, posts []fixturePost) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if lastPage > 1 {
		fmt.Fprintf(&b, `<div id="pagination_top"><span class="first_last">`+
			`<a href="showthread.php?t=%d&amp;page=%d">Last</a></span></div>`, threadID, lastPage)
	}
	b.WriteString(`<ol id="posts">`)
	for _, p := range posts {
		fmt.Fprintf(&b, `<li><div class="postfoot"><span class="rating_results" id="rating_%d">`, p.id)
		for label, count := range p.ratings {
			fmt.Fprintf(&b, `<span><img src="/fp/ratings/x.png" alt="%s" /> x <strong>%d</strong></span>`, label, count)
		}
		b.WriteString(`</span></div></li>`)
	}
	b.WriteString("</ol></body></html>")
	return b.String()
}

type testForum struct {
	pages map[int]string
	fail  map[int]bool
}

func (f *testForum) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if f.fail[page] {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	body, ok := f.pages[page]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func newThreadFetcher(t *testing.T, srv *httptest.Server, mutate func(*config.Config)) (*ThreadFetcher, *observability.Metrics) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Forum.BaseURL = srv.URL
	cfg.Fetcher.Concurrency = 3
	if mutate != nil {
		mutate(cfg)
	}

	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })

	metrics := observability.NewMetrics(testLogger)
	return NewThreadFetcher(1, f, nil, cfg, metrics, testLogger), metrics
}

func TestPageCountFromLastPageLink(t *testing.T) {
	forum := &testForum{pages: map[int]string{1: listingHTML(1, 12, []fixturePost{{id: 1}})}}
	srv := httptest.NewServer(forum)
	defer srv.Close()

	tf, _ := newThreadFetcher(t, srv, nil)
	n, err := tf.PageCount(context.Background())
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 12 {
		t.Errorf("pages = %d, want 12", n)
	}
}

func TestPageCountFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{
			"highest page link",
			`<div id="pagination_top"><a href="showthread.php?t=1&amp;page=2">2</a>` +
				`<a href="showthread.php?t=1&amp;page=3">3</a></div><ol id="posts"></ol>`,
			3,
		},
		{"single page", listingHTML(1, 1, []fixturePost{{id: 1}}), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(&testForum{pages: map[int]string{1: tt.html}})
			defer srv.Close()

			tf, _ := newThreadFetcher(t, srv, nil)
			n, err := tf.PageCount(context.Background())
			if err != nil {
				t.Fatalf("PageCount: %v", err)
			}
			if n != tt.want {
				t.Errorf("pages = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestPageCountDiscoveryErrors(t *testing.T) {
	tests := []struct {
		name  string
		forum *testForum
	}{
		{"unrecognized page", &testForum{pages: map[int]string{1: "<html><body>Invalid thread specified.</body></html>"}}},
		{"missing thread", &testForum{pages: map[int]string{}}},
		{"bad last page link", &testForum{pages: map[int]string{1: `<div id="pagination_top"><span class="first_last"><a href="showthread.php?t=1">Last</a></span></div>`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.forum)
			defer srv.Close()

			tf, _ := newThreadFetcher(t, srv, nil)
			_, err := tf.PageCount(context.Background())
			var discErr *types.DiscoveryError
			if !errors.As(err, &discErr) {
				t.Fatalf("expected DiscoveryError, got %v", err)
			}
		})
	}
}

func TestFetchAllPostsSkipsOpeningPost(t *testing.T) {
	forum := &testForum{pages: map[int]string{
		1: listingHTML(1, 1, []fixturePost{
			{id: 100, ratings: map[string]int{"Winner": 50}},
			{id: 101, ratings: map[string]int{"Winner": 1, "Funny": 2}},
			{id: 102},
		}),
	}}
	srv := httptest.NewServer(forum)
	defer srv.Close()

	tf, metrics := newThreadFetcher(t, srv, nil)
	posts, err := tf.FetchAllPosts(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchAllPosts: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].ID != 101 || posts[1].ID != 102 {
		t.Errorf("ids = %d, %d", posts[0].ID, posts[1].ID)
	}
	if posts[0].Ratings["Winner"] != 1 || posts[0].Ratings["Funny"] != 2 {
		t.Errorf("ratings = %v", posts[0].Ratings)
	}
	if len(posts[1].Ratings) != 0 {
		t.Errorf("unrated post has ratings %v", posts[1].Ratings)
	}
	if posts[0].HasMessage() {
		t.Error("seeds must not carry a message")
	}
	if got := testutil.ToFloat64(metrics.PostsScraped); got != 2 {
		t.Errorf("posts_scraped = %v", got)
	}
}

func TestFetchAllPostsToleratesPageFailure(t *testing.T) {
	forum := &testForum{pages: map[int]string{}, fail: map[int]bool{3: true}}
	for page := 1; page <= 5; page++ {
		forum.pages[page] = listingHTML(1, 5, []fixturePost{
			{id: page * 10},
			{id: page*10 + 1, ratings: map[string]int{"Funny": page}},
		})
	}
	srv := httptest.NewServer(forum)
	defer srv.Close()

	tf, metrics := newThreadFetcher(t, srv, nil)
	posts, err := tf.FetchAllPosts(context.Background(), 5)
	if err != nil {
		t.Fatalf("FetchAllPosts: %v", err)
	}

	// Page 1 loses its opening post, page 3 contributes nothing.
	want := []int{11, 20, 21, 40, 41, 50, 51}
	if len(posts) != len(want) {
		t.Fatalf("got %d posts, want %d", len(posts), len(want))
	}
	for i, id := range want {
		if posts[i].ID != id {
			t.Errorf("posts[%d].ID = %d, want %d", i, posts[i].ID, id)
		}
	}
	if got := testutil.ToFloat64(metrics.PagesFailed); got != 1 {
		t.Errorf("pages_failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.PagesFetched); got != 4 {
		t.Errorf("pages_fetched = %v, want 4", got)
	}
}

func TestFetchAllPostsDropsMalformedPage(t *testing.T) {
	forum := &testForum{pages: map[int]string{
		1: listingHTML(1, 2, []fixturePost{{id: 1}, {id: 2}}),
		2: `<ol id="posts"><span class="rating_results" id="rating_3"><span><img alt="Winner"/></span></span></ol>`,
	}}
	srv := httptest.NewServer(forum)
	defer srv.Close()

	tf, metrics := newThreadFetcher(t, srv, nil)
	posts, err := tf.FetchAllPosts(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchAllPosts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 2 {
		t.Errorf("posts = %v", posts)
	}
	if got := testutil.ToFloat64(metrics.PagesFailed); got != 1 {
		t.Errorf("pages_failed = %v, want 1", got)
	}
}

func TestFetchAllPostsDuplicateIDs(t *testing.T) {
	forum := &testForum{pages: map[int]string{
		1: listingHTML(1, 2, []fixturePost{{id: 1}, {id: 5, ratings: map[string]int{"Winner": 1}}}),
		2: listingHTML(1, 2, []fixturePost{{id: 5, ratings: map[string]int{"Winner": 1}}, {id: 6}}),
	}}
	srv := httptest.NewServer(forum)
	defer srv.Close()

	tf, metrics := newThreadFetcher(t, srv, nil)
	posts, err := tf.FetchAllPosts(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchAllPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if got := testutil.ToFloat64(metrics.DuplicatePosts); got != 1 {
		t.Errorf("duplicates = %v, want 1", got)
	}
}

func TestFetchAllPostsOrdersByID(t *testing.T) {
	forum := &testForum{pages: map[int]string{
		1: listingHTML(1, 2, []fixturePost{{id: 0}, {id: math.MaxInt}}),
		2: listingHTML(1, 2, []fixturePost{{id: 7}, {id: 1}}),
	}}
	srv := httptest.NewServer(forum)
	defer srv.Close()

	tf, _ := newThreadFetcher(t, srv, nil)
	posts, err := tf.FetchAllPosts(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchAllPosts: %v", err)
	}

	want := []int{1, 7, math.MaxInt}
	if len(posts) != len(want) {
		t.Fatalf("got %d posts, want %d", len(posts), len(want))
	}
	for i, id := range want {
		if posts[i].ID != id {
			t.Errorf("posts[%d].ID = %d, want %d", i, posts[i].ID, id)
		}
	}
}

func TestFetchAllPostsCourtesyDelay(t *testing.T) {
	forum := &testForum{pages: map[int]string{}}
	for page := 1; page <= 3; page++ {
		forum.pages[page] = listingHTML(1, 3, []fixturePost{{id: page * 2}, {id: page*2 + 1}})
	}
	srv := httptest.NewServer(forum)
	defer srv.Close()

	delay := 50 * time.Millisecond
	tf, _ := newThreadFetcher(t, srv, func(c *config.Config) {
		c.Fetcher.PolitenessThreshold = 3
		c.Fetcher.PolitenessDelay = delay
	})

	start := time.Now()
	posts, err := tf.FetchAllPosts(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchAllPosts: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("elapsed %s, expected workers to pause at least %s", elapsed, delay)
	}
	if len(posts) != 5 {
		t.Errorf("got %d posts, want 5", len(posts))
	}
}
