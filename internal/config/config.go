// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob. Values come from a config
// file, HARVESTER_* environment variables, or defaults, in that priority.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Render  RenderConfig  `mapstructure:"render"`
	Check   CheckConfig   `mapstructure:"check"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig sets the artifact and cache directories.
type CatalogConfig struct {
	Dir      string `mapstructure:"dir"`
	CacheDir string `mapstructure:"cache_dir"`
}

// CrawlerConfig scopes the crawl pass.
type CrawlerConfig struct {
	Seeds     []string `mapstructure:"seeds"`
	Domain    string   `mapstructure:"domain"`
	BaseURL   string   `mapstructure:"base_url"`
	UserAgent string   `mapstructure:"user_agent"`
}

// HTTPConfig configures the fetch primitive.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// RenderConfig configures the rendering fallback.
type RenderConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
}

// CheckConfig toggles the post-harvest consistency pass.
type CheckConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.dir", "catalog")
	v.SetDefault("catalog.cache_dir", "catalog/cache")
	v.SetDefault("crawler.user_agent", "skubase-harvester/1.0")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("render.enabled", false)
	v.SetDefault("render.nav_timeout_seconds", 45)
	v.SetDefault("check.enabled", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Catalog.Dir) == "" {
		return fmt.Errorf("catalog.dir must be set")
	}
	if strings.TrimSpace(c.Catalog.CacheDir) == "" {
		return fmt.Errorf("catalog.cache_dir must be set")
	}
	if len(c.Crawler.Seeds) == 0 {
		return fmt.Errorf("crawler.seeds must include at least one seed URL")
	}
	if strings.TrimSpace(c.Crawler.Domain) == "" {
		return fmt.Errorf("crawler.domain must be set")
	}
	if strings.TrimSpace(c.Crawler.BaseURL) == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if strings.TrimSpace(c.Crawler.UserAgent) == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Render.Enabled && c.Render.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("render.nav_timeout_seconds must be > 0 when rendering is enabled")
	}
	return nil
}

// HTTPTimeout returns the fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout returns the render navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Render.NavTimeoutSeconds) * time.Second
}
