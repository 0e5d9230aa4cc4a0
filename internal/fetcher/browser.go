package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// It renders listing pages only; form posts go through HTTPFetcher.
type BrowserFetcher struct {
	browser    *rod.Browser
	cfg        *config.Config
	stealthCfg *StealthConfig
	logger     *slog.Logger
	pagePool   chan *rod.Page
	maxPages   int
}

// BrowserOption configures the BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithStealth enables stealth mode with the given configuration.
func WithStealth(cfg *StealthConfig) BrowserOption {
	return func(bf *BrowserFetcher) { bf.stealthCfg = cfg }
}

// WithMaxPages sets the maximum number of pooled browser pages.
func WithMaxPages(n int) BrowserOption {
	return func(bf *BrowserFetcher) { bf.maxPages = n }
}

// NewBrowserFetcher launches a headless browser.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger, opts ...BrowserOption) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:      cfg,
		logger:   logger.With("component", "browser_fetcher"),
		maxPages: cfg.Fetcher.Concurrency,
	}

	for _, opt := range opts {
		opt(bf)
	}

	launchURL, err := bf.launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	bf.pagePool = make(chan *rod.Page, bf.maxPages)

	bf.logger.Info("browser fetcher ready",
		"max_pages", bf.maxPages,
		"stealth", bf.stealthCfg != nil,
	)

	return bf, nil
}

// launchBrowser starts a Chromium instance with appropriate flags.
func (bf *BrowserFetcher) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if bf.stealthCfg != nil {
		if bf.stealthCfg.UserDataDir != "" {
			l = l.UserDataDir(bf.stealthCfg.UserDataDir)
		}
		if bf.stealthCfg.WindowSize != "" {
			l = l.Set("window-size", bf.stealthCfg.WindowSize)
		}
	}

	return l.Launch()
}

// Fetch navigates to a listing URL and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.Method != "" && req.Method != http.MethodGet {
		return nil, &types.FetchError{URL: req.URLString(), Err: types.ErrUnsupportedMethod}
	}

	start := time.Now()

	page, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	defer bf.putPage(page)

	timeout := bf.cfg.Fetcher.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	page = page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	if ua := bf.cfg.Authentication.UserAgent; ua != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
		if err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	if cookies := browserCookies(&bf.cfg.Authentication, bf.cfg.Forum.BaseURL); len(cookies) > 0 {
		if err := page.SetCookies(cookies); err != nil {
			bf.logger.Warn("failed to set cookies", "error", err)
		}
	}

	if err := page.Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	if err := page.WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	// Rod does not expose the navigation status code.
	resp := types.NewBrowserResponse(req, http.StatusOK, []byte(html), finalURL, duration)

	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return resp, nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	close(bf.pagePool)
	for page := range bf.pagePool {
		_ = page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// getPage retrieves a page from the pool or creates a new one.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
	}

	if bf.stealthCfg != nil {
		page, err := stealth.Page(bf.browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, bf.stealthCfg.apply(page)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// putPage returns a page to the pool.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")

	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close() // Pool full, close the page
	}
}
