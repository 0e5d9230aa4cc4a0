package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request tags.
const (
	TagListing = "listing"
	TagQuote   = "quote"
)

// Request represents an HTTP request against the forum.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method (GET, POST). Defaults to GET.
	Method string

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Body is the request body for POST requests.
	Body []byte

	// Timeout overrides the fetcher's request timeout for this request.
	Timeout time.Duration

	// Tag categorizes this request ("listing" or "quote").
	Tag string

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a GET Request for rawURL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	return &Request{
		URL:       u,
		Method:    http.MethodGet,
		Headers:   make(http.Header),
		Tag:       TagListing,
		CreatedAt: time.Now(),
	}, nil
}

// NewFormRequest creates a url-encoded form POST Request.
func NewFormRequest(rawURL string, form url.Values) (*Request, error) {
	req, err := NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Method = http.MethodPost
	req.Body = []byte(form.Encode())
	req.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
