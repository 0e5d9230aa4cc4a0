package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for waywo.
type Config struct {
	Authentication AuthConfig    `mapstructure:"authentication" yaml:"authentication"`
	ScoringConfig  `mapstructure:",squash" yaml:",inline"`
	Forum          ForumConfig   `mapstructure:"forum"          yaml:"forum"`
	Fetcher        FetcherConfig `mapstructure:"fetcher"        yaml:"fetcher"`
	Cache          CacheConfig   `mapstructure:"cache"          yaml:"cache"`
	Logging        LoggingConfig `mapstructure:"logging"        yaml:"logging"`
	Metrics        MetricsConfig `mapstructure:"metrics"        yaml:"metrics"`
}

// AuthConfig carries pre-obtained session material attached to every request.
type AuthConfig struct {
	UserAgent     string   `mapstructure:"userAgent"     yaml:"userAgent"`
	Cookies       []Cookie `mapstructure:"cookies"       yaml:"cookies"`
	SecurityToken string   `mapstructure:"securityToken" yaml:"securityToken"`
}

// Cookie is a single name/value session cookie.
type Cookie struct {
	Name  string `mapstructure:"name"  yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// ForumConfig locates the forum and describes its text encoding.
type ForumConfig struct {
	BaseURL  string `mapstructure:"baseURL"  yaml:"baseURL"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// FetcherConfig controls page and message retrieval.
type FetcherConfig struct {
	Type                string        `mapstructure:"type"                yaml:"type"`
	RequestTimeout      time.Duration `mapstructure:"requestTimeout"      yaml:"requestTimeout"`
	Concurrency         int           `mapstructure:"concurrency"         yaml:"concurrency"`
	PolitenessDelay     time.Duration `mapstructure:"politenessDelay"     yaml:"politenessDelay"`
	PolitenessThreshold int           `mapstructure:"politenessThreshold" yaml:"politenessThreshold"`
	MaxBodySize         int64         `mapstructure:"maxBodySize"         yaml:"maxBodySize"`
	IdleConnTimeout     time.Duration `mapstructure:"idleConnTimeout"     yaml:"idleConnTimeout"`
	Stealth             bool          `mapstructure:"stealth"             yaml:"stealth"`
}

// CacheConfig selects and configures the thread cache backend.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"    yaml:"backend"`
	Dir        string `mapstructure:"dir"        yaml:"dir"`
	Path       string `mapstructure:"path"       yaml:"path"`
	MongoURI   string `mapstructure:"mongoURI"   yaml:"mongoURI"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Authentication: AuthConfig{
			UserAgent: "BetterWAYWO highlights generator",
		},
		ScoringConfig: DefaultScoring(),
		Forum: ForumConfig{
			BaseURL:  "http://facepunch.com",
			Encoding: "windows-1252",
		},
		Fetcher: FetcherConfig{
			Type:                "http",
			RequestTimeout:      15 * time.Second,
			Concurrency:         8,
			PolitenessDelay:     2500 * time.Millisecond,
			PolitenessThreshold: 50,
			MaxBodySize:         10 * 1024 * 1024, // 10MB
			IdleConnTimeout:     90 * time.Second,
		},
		Cache: CacheConfig{
			Backend:    "file",
			Dir:        ".",
			Path:       "waywo.db",
			Database:   "waywo",
			Collection: "threads",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
