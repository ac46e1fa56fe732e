package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/memoria-app/memoria/internal/flagx"
	"github.com/memoria-app/memoria/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "6h"
// or as integer nanoseconds. After parsing, non-zero values are copied into
// the runtime Config.
type JsonConfig struct {
	DatabasePath  string `json:"database_path"`
	MediaDir      string `json:"media_dir"`
	RemoteBaseURL string `json:"remote_base_url"`

	RequestTimeout   timex.Duration `json:"request_timeout"`
	SyncInterval     timex.Duration `json:"sync_interval"`
	FreshnessHorizon timex.Duration `json:"freshness_horizon"`
	DataStaleness    timex.Duration `json:"data_staleness"`

	ContentCacheTTL    timex.Duration `json:"content_cache_ttl"`
	ValidationCacheTTL timex.Duration `json:"validation_cache_ttl"`

	RetryAttempts uint64         `json:"retry_attempts"`
	RetryBase     timex.Duration `json:"retry_base"`
	LogRetention  timex.Duration `json:"log_retention"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c or -config flags via flagx.JsonConfigFlags; with
// no flag, nothing is loaded. Fields absent from the JSON keep their prior
// values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.MediaDir != "" {
		cfg.MediaDir = jc.MediaDir
	}
	if jc.RemoteBaseURL != "" {
		cfg.RemoteBaseURL = jc.RemoteBaseURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.FreshnessHorizon.Duration != 0 {
		cfg.FreshnessHorizon = time.Duration(jc.FreshnessHorizon.Duration)
	}
	if jc.DataStaleness.Duration != 0 {
		cfg.DataStaleness = time.Duration(jc.DataStaleness.Duration)
	}
	if jc.ContentCacheTTL.Duration != 0 {
		cfg.ContentCacheTTL = time.Duration(jc.ContentCacheTTL.Duration)
	}
	if jc.ValidationCacheTTL.Duration != 0 {
		cfg.ValidationCacheTTL = time.Duration(jc.ValidationCacheTTL.Duration)
	}
	if jc.RetryAttempts != 0 {
		cfg.RetryAttempts = jc.RetryAttempts
	}
	if jc.RetryBase.Duration != 0 {
		cfg.RetryBase = time.Duration(jc.RetryBase.Duration)
	}
	if jc.LogRetention.Duration != 0 {
		cfg.LogRetention = time.Duration(jc.LogRetention.Duration)
	}
}
