package config

import (
	"log/slog"
	"strings"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// UserConfig identifies the acting user. Identity is not verified.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"` // postgres or sqlite
	DSN        string `mapstructure:"dsn"`
	Migrations string `mapstructure:"migrations"` // directory holding <driver>/ SQL files
	MaxConns   int    `mapstructure:"max_conns"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	SnapshotTTL string `mapstructure:"snapshot_ttl"` // duration string, e.g., "10m"
	Disabled    bool   `mapstructure:"disabled"`
}

// ThreadConfig controls how discussions are fetched and laid out.
type ThreadConfig struct {
	MaxDepth int    `mapstructure:"max_depth"`
	Order    string `mapstructure:"order"` // score or recent
}

// BlobConfig points at the object store used for publication images.
type BlobConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	Bucket      string `mapstructure:"bucket"`
	WebPQuality int    `mapstructure:"webp_quality"`
	Timeout     string `mapstructure:"timeout"`
}

// OpenAIConfig enables thread digests.
type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// HackerNewsConfig controls the discussion importer.
type HackerNewsConfig struct {
	BaseAPI     string `mapstructure:"base_api"`
	MaxComments int    `mapstructure:"max_comments"`
}

// MetricsConfig exposes prometheus metrics while serving.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig drives the background snapshot refresher.
type WatchConfig struct {
	Interval string `mapstructure:"interval"`
}

// Config is the top-level configuration structure.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	User       UserConfig       `mapstructure:"user"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Thread     ThreadConfig     `mapstructure:"thread"`
	Blob       BlobConfig       `mapstructure:"blob"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	HackerNews HackerNewsConfig `mapstructure:"hackernews"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Watch      WatchConfig      `mapstructure:"watch"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "postgresql" || c.Database.Driver == "pg" {
		c.Database.Driver = "postgres"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "forumline.db"
	}
	if c.Database.Migrations == "" {
		c.Database.Migrations = "./migrations"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 5
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.SnapshotTTL == "" {
		c.Redis.SnapshotTTL = "10m"
	}
	if c.Thread.MaxDepth <= 0 {
		c.Thread.MaxDepth = 3
	}
	if c.Thread.Order == "" {
		c.Thread.Order = "score"
	}
	if c.Blob.Bucket == "" {
		c.Blob.Bucket = "images"
	}
	if c.Blob.WebPQuality <= 0 || c.Blob.WebPQuality > 100 {
		c.Blob.WebPQuality = 85
	}
	if c.Blob.Timeout == "" {
		c.Blob.Timeout = "30s"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "English"
	}
	if c.HackerNews.BaseAPI == "" {
		c.HackerNews.BaseAPI = "https://hacker-news.firebaseio.com/v0"
	}
	if c.HackerNews.MaxComments == 0 {
		c.HackerNews.MaxComments = 500
	}
	if c.Watch.Interval == "" {
		c.Watch.Interval = "2m"
	}
}

// SlogLevel maps app.log_level to a slog level.
func (c AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
