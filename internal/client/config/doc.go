// Package config loads runtime configuration for the Memoria client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a, --remote string      base URL of the remote content service
//	-d, --database string    path to the local SQLite database file
//	-m, --media-dir string   directory for downloaded media payloads
//	-i, --interval int       periodic sync interval (minutes)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "6h" or integer nanoseconds:
//
//	{
//	  "database_path": "memoria.db",
//	  "remote_base_url": "https://content.example.org",
//	  "sync_interval": "15m",
//	  "freshness_horizon": "6h",
//	  "data_staleness": "24h",
//	  "validation_cache_ttl": "24h",
//	  "content_cache_ttl": "5m"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
