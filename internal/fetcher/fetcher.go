package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/waywo/internal/config"
	"github.com/IshaanNene/waywo/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the listing-page fetcher selected by cfg.Fetcher.Type.
// The browser fetcher only handles GET requests, so quote requests always
// need an HTTP fetcher as well; see NewHTTPFetcher.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "", "http":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		var opts []BrowserOption
		if cfg.Fetcher.Stealth {
			opts = append(opts, WithStealth(DefaultStealthConfig()))
		}
		return NewBrowserFetcher(cfg, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Fetcher.Type)
	}
}
