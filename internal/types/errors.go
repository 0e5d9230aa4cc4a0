package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyResponse     = errors.New("empty response body")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrNoPosts           = errors.New("no posts scraped")
	ErrEmptyMessage      = errors.New("post message is empty")
	ErrUnsupportedMethod = errors.New("unsupported request method")
	ErrMalformedQuote    = errors.New("malformed quote payload")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DiscoveryError is returned when a thread's page count cannot be determined.
type DiscoveryError struct {
	ThreadID int
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover pages of thread %d: %v", e.ThreadID, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// PageFetchError describes a single listing page that contributed no posts.
type PageFetchError struct {
	ThreadID int
	Page     int
	Err      error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("thread %d page %d: %v", e.ThreadID, e.Page, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// PostFetchError wraps a failure to retrieve or decode one post's message.
type PostFetchError struct {
	PostID int
	Err    error
}

func (e *PostFetchError) Error() string {
	return fmt.Sprintf("read post %d: %v", e.PostID, e.Err)
}

func (e *PostFetchError) Unwrap() error { return e.Err }

// ConfigError wraps errors from loading or validating configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CacheError wraps errors from a cache backend.
type CacheError struct {
	Backend  string
	ThreadID int
	Err      error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error (%s, thread %d): %v", e.Backend, e.ThreadID, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// OutputError wraps errors from writing the highlights file.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("write output %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }
