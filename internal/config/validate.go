package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := validateScoring(&cfg.ScoringConfig); err != nil {
		return err
	}

	if err := ValidateURL(cfg.Forum.BaseURL); err != nil {
		return fmt.Errorf("forum.baseURL: %w", err)
	}
	if _, err := htmlindex.Get(cfg.Forum.Encoding); err != nil {
		return fmt.Errorf("forum.encoding %q is not a known charset", cfg.Forum.Encoding)
	}

	for i, c := range cfg.Authentication.Cookies {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("authentication.cookies[%d] has no name", i)
		}
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.requestTimeout must be > 0")
	}
	if cfg.Fetcher.Concurrency < 1 {
		return fmt.Errorf("fetcher.concurrency must be >= 1, got %d", cfg.Fetcher.Concurrency)
	}
	if cfg.Fetcher.Concurrency > 1000 {
		return fmt.Errorf("fetcher.concurrency must be <= 1000, got %d", cfg.Fetcher.Concurrency)
	}
	if cfg.Fetcher.PolitenessDelay < 0 {
		return fmt.Errorf("fetcher.politenessDelay must be >= 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.maxBodySize must be > 0")
	}

	switch cfg.Cache.Backend {
	case "file", "sqlite":
	case "mongodb":
		if cfg.Cache.MongoURI == "" {
			return fmt.Errorf("cache.mongoURI is required for the mongodb backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not supported (valid: file, sqlite, mongodb)", cfg.Cache.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

func validateScoring(s *ScoringConfig) error {
	if !finite(s.RatingsDefault) || !finite(s.ContentDefault) {
		return fmt.Errorf("ratingsDefault and contentDefault must be finite numbers")
	}
	for i, rule := range s.Ratings {
		if len(rule.Labels) == 0 {
			return fmt.Errorf("ratings[%d] has no labels", i)
		}
		if !finite(rule.Score) {
			return fmt.Errorf("ratings[%d] score must be finite", i)
		}
	}
	for i, rule := range s.Content {
		if len(rule.Tags) == 0 {
			return fmt.Errorf("content[%d] has no tags", i)
		}
		if !finite(rule.Score) {
			return fmt.Errorf("content[%d] score must be finite", i)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
