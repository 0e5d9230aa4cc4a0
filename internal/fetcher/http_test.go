package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T, baseURL string) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Forum.BaseURL = baseURL
	cfg.Authentication.UserAgent = "waywo-test"
	cfg.Authentication.Cookies = []config.Cookie{{Name: "bb_sessionhash", Value: "s3cret"}}

	f, err := NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestHTTPFetcherSessionAndCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "waywo-test" {
			t.Errorf("user agent = %q", got)
		}
		c, err := r.Cookie("bb_sessionhash")
		if err != nil || c.Value != "s3cret" {
			t.Errorf("session cookie missing: %v", err)
		}
		// 0x93/0x94 are curly quotes in windows-1252.
		w.Write([]byte{'a', 0x93, 'b', 0x94})
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	req, _ := types.NewRequest(srv.URL + "/showthread.php?t=1")

	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := resp.Text(); got != "a“b”" {
		t.Errorf("decoded body = %q", got)
	}
}

func TestHTTPFetcherFormPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "do=getquotes&p=42" {
			t.Errorf("body = %q", body)
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	req, err := types.NewFormRequest(srv.URL+"/ajax.php", url.Values{"do": {"getquotes"}, "p": {"42"}})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	if _, err := f.Fetch(context.Background(), req); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such thread", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL)
	req, _ := types.NewRequest(srv.URL)

	_, err := f.Fetch(context.Background(), req)
	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", fetchErr.StatusCode)
	}
}

func TestHTTPFetcherDecompression(t *testing.T) {
	tests := []struct {
		encoding string
		wrap     func(io.Writer) io.WriteCloser
	}{
		{"gzip", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"br", func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.encoding)
				zw := tt.wrap(w)
				io.WriteString(zw, "<html>compressed</html>")
				zw.Close()
			}))
			defer srv.Close()

			f := newTestFetcher(t, srv.URL)
			req, _ := types.NewRequest(srv.URL)
			resp, err := f.Fetch(context.Background(), req)
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if resp.Text() != "<html>compressed</html>" {
				t.Errorf("body = %q", resp.Text())
			}
		})
	}
}
