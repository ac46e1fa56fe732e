package store

// Canonical table shapes. These double as the target for shape
// normalization and as the source for last-resort synthesis when a
// required table is missing entirely.

var recordsShape = tableShape{
	name: "records",
	columns: []column{
		{"id", "TEXT PRIMARY KEY", "''"},
		{"name", "TEXT NOT NULL DEFAULT ''", "''"},
		{"description", "TEXT NOT NULL DEFAULT ''", "''"},
		{"category_id", "TEXT NOT NULL DEFAULT ''", "''"},
		{"image_path", "TEXT NOT NULL DEFAULT ''", "''"},
		{"video_path", "TEXT NOT NULL DEFAULT ''", "''"},
		{"hologram_path", "TEXT NOT NULL DEFAULT ''", "''"},
		{"audio_paths", "TEXT NOT NULL DEFAULT '[]'", "'[]'"},
		{"stories", "TEXT NOT NULL DEFAULT '[]'", "'[]'"},
		{"scan_code", "TEXT NOT NULL DEFAULT ''", "''"},
		{"status", "TEXT NOT NULL DEFAULT 'active'", "'active'"},
		{"sync_status", "TEXT NOT NULL DEFAULT 'pending'", "'pending'"},
		{"version", "INTEGER NOT NULL DEFAULT 0", "0"},
		{"created_at", "INTEGER NOT NULL DEFAULT 0", "0"},
		{"updated_at", "INTEGER NOT NULL DEFAULT 0", "0"},
		{"deleted_at", "INTEGER", "NULL"},
	},
}

var mediaAssetsShape = tableShape{
	name: "media_assets",
	columns: []column{
		{"id", "TEXT PRIMARY KEY", "''"},
		{"record_id", "TEXT NOT NULL DEFAULT ''", "''"},
		{"kind", "TEXT NOT NULL DEFAULT ''", "''"},
		{"local_path", "TEXT NOT NULL DEFAULT ''", "''"},
		{"remote_url", "TEXT NOT NULL DEFAULT ''", "''"},
		{"size_bytes", "INTEGER NOT NULL DEFAULT 0", "0"},
		{"content_type", "TEXT NOT NULL DEFAULT ''", "''"},
		{"status", "TEXT NOT NULL DEFAULT 'active'", "'active'"},
		{"sync_status", "TEXT NOT NULL DEFAULT 'pending'", "'pending'"},
		{"created_at", "INTEGER NOT NULL DEFAULT 0", "0"},
		{"updated_at", "INTEGER NOT NULL DEFAULT 0", "0"},
	},
}

var categoriesShape = tableShape{
	name: "categories",
	columns: []column{
		{"id", "TEXT PRIMARY KEY", "''"},
		{"name", "TEXT NOT NULL DEFAULT ''", "''"},
		{"sort_order", "INTEGER NOT NULL DEFAULT 0", "0"},
		{"record_count", "INTEGER NOT NULL DEFAULT 0", "0"},
		{"status", "TEXT NOT NULL DEFAULT 'active'", "'active'"},
	},
}

var syncLogShape = tableShape{
	name: "sync_log",
	columns: []column{
		{"id", "TEXT PRIMARY KEY", "''"},
		{"operation", "TEXT NOT NULL DEFAULT ''", "''"},
		{"kind", "TEXT NOT NULL DEFAULT ''", "''"},
		{"target_id", "TEXT NOT NULL DEFAULT ''", "''"},
		{"outcome", "TEXT NOT NULL DEFAULT ''", "''"},
		{"error", "TEXT NOT NULL DEFAULT ''", "''"},
		{"created_at", "INTEGER NOT NULL DEFAULT 0", "0"},
	},
}

var metadataShape = tableShape{
	name: "metadata",
	columns: []column{
		{"key", "TEXT PRIMARY KEY", "''"},
		{"value", "BLOB", "NULL"},
	},
}

// requiredTables is the fixed invariant verified after every migration run.
var requiredTables = []tableShape{
	recordsShape,
	categoriesShape,
	metadataShape,
	mediaAssetsShape,
	syncLogShape,
}

var requiredIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_scan_code
	 ON records(scan_code) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_media_assets_record_id
	 ON media_assets(record_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_log_created_at
	 ON sync_log(created_at)`,
}
