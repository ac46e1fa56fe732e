package config

import "time"

// Config holds runtime settings for the Memoria client.
//
// Durations group into three concerns: how often the background loop runs
// (SyncInterval), how old sync marks and data may get before a sync is due
// (FreshnessHorizon, DataStaleness), and how long cached lookups stay fresh
// (ContentCacheTTL, ValidationCacheTTL).
type Config struct {
	DatabasePath  string
	MediaDir      string
	RemoteBaseURL string

	RequestTimeout   time.Duration
	SyncInterval     time.Duration
	FreshnessHorizon time.Duration
	DataStaleness    time.Duration

	ContentCacheTTL    time.Duration
	ValidationCacheTTL time.Duration

	RetryAttempts uint64
	RetryBase     time.Duration
	LogRetention  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "memoria.db"
	c.MediaDir = "media"
	c.RemoteBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.SyncInterval = 15 * time.Minute
	c.FreshnessHorizon = 6 * time.Hour
	c.DataStaleness = 24 * time.Hour
	c.ContentCacheTTL = 5 * time.Minute
	c.ValidationCacheTTL = 24 * time.Hour
	c.RetryAttempts = 3
	c.RetryBase = 500 * time.Millisecond
	c.LogRetention = 7 * 24 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
