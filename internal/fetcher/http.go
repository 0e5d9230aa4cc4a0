package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/types"
)

// HTTPFetcher implements Fetcher using net/http.
// Response bodies are decoded from the forum's legacy charset to UTF-8.
type HTTPFetcher struct {
	client    *http.Client
	cfg       *config.FetcherConfig
	userAgent string
	charset   encoding.Encoding
	logger    *slog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher carrying the configured session.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := NewSessionJar(&cfg.Authentication, cfg.Forum.BaseURL)
	if err != nil {
		return nil, err
	}

	charset, err := htmlindex.Get(cfg.Forum.Encoding)
	if err != nil {
		return nil, fmt.Errorf("resolve charset %q: %w", cfg.Forum.Encoding, err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.Concurrency * 2,
		MaxIdleConnsPerHost: cfg.Fetcher.Concurrency,
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // We handle decompression ourselves (including brotli)
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Fetcher.RequestTimeout,
	}

	return &HTTPFetcher{
		client:    client,
		cfg:       &cfg.Fetcher,
		userAgent: cfg.Authentication.UserAgent,
		charset:   charset,
		logger:    logger.With("component", "http_fetcher"),
	}, nil
}

// Fetch executes an HTTP request and returns the decoded response.
// Non-2xx statuses are returned as *types.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URLString(), body)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	httpReq.Header.Set("Connection", "keep-alive")

	// Apply custom headers from request
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	// Read body with size limit
	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	// Decompress if needed (gzip, deflate, brotli)
	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	decoded, err := io.ReadAll(f.charset.NewDecoder().Reader(reader))
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: fmt.Errorf("read body: %w", err)}
	}

	resp := types.NewResponse(req, httpResp, decoded, duration)

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"method", req.Method,
		"status", resp.StatusCode,
		"size", len(decoded),
		"duration", duration,
	)

	return resp, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
