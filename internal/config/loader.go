package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/IshaanNene/waywo/internal/types"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// A configPath that is set but missing or malformed is a ConfigError.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("WAYWO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("waywo")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".waywo"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, &types.ConfigError{Path: configPath, Err: fmt.Errorf("read config file: %w", err)}
		}
		// Config file not found is okay if not explicitly specified
	}

	// Rule lists from the document replace the stock rules instead of
	// being merged into them index by index.
	if v.IsSet("ratings") {
		cfg.Ratings = nil
	}
	if v.IsSet("content") {
		cfg.Content = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, &types.ConfigError{Path: v.ConfigFileUsed(), Err: fmt.Errorf("unmarshal config: %w", err)}
	}

	cfg.Normalize()

	if err := Validate(cfg); err != nil {
		return nil, &types.ConfigError{Path: v.ConfigFileUsed(), Err: err}
	}

	return cfg, nil
}

// Normalize lower-cases content rule tags and extensions and adds the
// leading dot to bare extensions.
func (c *Config) Normalize() {
	for i := range c.Content {
		rule := &c.Content[i]
		for j, tag := range rule.Tags {
			rule.Tags[j] = strings.ToLower(strings.TrimSpace(tag))
		}
		for j, ext := range rule.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			rule.Extensions[j] = ext
		}
	}
	c.Forum.BaseURL = strings.TrimRight(c.Forum.BaseURL, "/")
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("authentication.userAgent", cfg.Authentication.UserAgent)
	v.SetDefault("authentication.securityToken", cfg.Authentication.SecurityToken)

	v.SetDefault("ratingsDefault", cfg.RatingsDefault)
	v.SetDefault("contentDefault", cfg.ContentDefault)

	v.SetDefault("forum.baseURL", cfg.Forum.BaseURL)
	v.SetDefault("forum.encoding", cfg.Forum.Encoding)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.requestTimeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.concurrency", cfg.Fetcher.Concurrency)
	v.SetDefault("fetcher.politenessDelay", cfg.Fetcher.PolitenessDelay)
	v.SetDefault("fetcher.politenessThreshold", cfg.Fetcher.PolitenessThreshold)
	v.SetDefault("fetcher.maxBodySize", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idleConnTimeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)

	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.mongoURI", cfg.Cache.MongoURI)
	v.SetDefault("cache.database", cfg.Cache.Database)
	v.SetDefault("cache.collection", cfg.Cache.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.textfile", cfg.Metrics.Textfile)
}
