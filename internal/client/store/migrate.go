package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/memoria-app/memoria/internal/common"
	"github.com/memoria-app/memoria/internal/dbx"
	"github.com/memoria-app/memoria/internal/logging"
)

// Schema revisions:
// v1: records, categories and metadata tables
// v2: media_assets and sync_log tables
// v3: sync bookkeeping columns on records, partial unique scan-code index
// v4: media_assets normalized to the canonical shape (drift repair)
const CurrentSchemaVersion = 4

// step is one forward schema transition. apply must be statement-idempotent
// (create-if-absent, column adds guarded by introspection) because a prior
// partial run may already have executed parts of it.
//
// Once shipped, a step is a permanent contract: never edit an existing one,
// only append new revisions.
type step struct {
	version int
	name    string
	apply   func(ctx context.Context, db *sql.DB, log logging.Logger) error
}

var steps = []step{
	{version: 1, name: "base tables", apply: stepBaseTables},
	{version: 2, name: "media and sync log tables", apply: stepMediaAndSyncLog},
	{version: 3, name: "record sync bookkeeping", apply: stepRecordSyncColumns},
	{version: 4, name: "media asset shape normalization", apply: stepNormalizeMediaAssets},
}

// Migrate brings the database from its persisted revision up to
// CurrentSchemaVersion, one step per intervening revision, recording each
// revision only after its step succeeded. Afterwards it verifies that every
// required table exists, synthesizing missing ones from their canonical
// definition as a last resort.
//
// A failing step is structural and aborts opening; shape normalization
// swallows its own failures (see normalizeShape) and therefore never
// surfaces here.
func Migrate(ctx context.Context, db *sql.DB, log logging.Logger) error {
	if err := ensureVersionTable(ctx, db); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStructural, err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStructural, err)
	}

	for _, s := range steps {
		if s.version <= current {
			continue
		}
		log.Info(ctx, "applying schema migration", "version", s.version, "name", s.name)
		if err := s.apply(ctx, db, log); err != nil {
			return fmt.Errorf("%w: migration %d (%s): %v", common.ErrStructural, s.version, s.name, err)
		}
		if err := setVersion(ctx, db, s.version); err != nil {
			return fmt.Errorf("%w: recording version %d: %v", common.ErrStructural, s.version, err)
		}
	}

	if err := ensureRequiredObjects(ctx, db, log); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStructural, err)
	}
	return nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		_, err = db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (0)`)
	}
	return err
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// setVersion records a newly reached revision. The version is monotonic:
// the guard keeps a concurrent or repeated run from ever decreasing it.
func setVersion(ctx context.Context, db *sql.DB, v int) error {
	_, err := db.ExecContext(ctx, `UPDATE schema_version SET version = ? WHERE version < ?`, v, v)
	return err
}

// ensureRequiredObjects is the last-resort recovery path: whatever the
// migration history did, every required table must exist afterwards. A
// table missing entirely is synthesized from its canonical shape; indexes
// are recreated unconditionally (create-if-absent).
func ensureRequiredObjects(ctx context.Context, db *sql.DB, log logging.Logger) error {
	for _, shape := range requiredTables {
		exists, err := tableExists(ctx, db, shape.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		log.Warn(ctx, "required table missing, synthesizing", "table", shape.name)
		if _, err := db.ExecContext(ctx, shape.createSQL(shape.name)); err != nil {
			return fmt.Errorf("failed to synthesize table %s: %w", shape.name, err)
		}
	}
	for _, idx := range requiredIndexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to ensure index: %w", err)
		}
	}
	return nil
}

func stepBaseTables(ctx context.Context, db *sql.DB, _ logging.Logger) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS records (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				category_id TEXT NOT NULL DEFAULT '',
				image_path TEXT NOT NULL DEFAULT '',
				video_path TEXT NOT NULL DEFAULT '',
				hologram_path TEXT NOT NULL DEFAULT '',
				audio_paths TEXT NOT NULL DEFAULT '[]',
				stories TEXT NOT NULL DEFAULT '[]',
				scan_code TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				created_at INTEGER NOT NULL DEFAULT 0,
				updated_at INTEGER NOT NULL DEFAULT 0,
				deleted_at INTEGER
			)`,
			`CREATE TABLE IF NOT EXISTS categories (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0,
				record_count INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'active'
			)`,
			`CREATE TABLE IF NOT EXISTS metadata (
				key TEXT PRIMARY KEY,
				value BLOB
			)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func stepMediaAndSyncLog(ctx context.Context, db *sql.DB, _ logging.Logger) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		stmts := []string{
			// Historical shape; revision 4 normalizes it to the canonical one.
			`CREATE TABLE IF NOT EXISTS media_assets (
				id TEXT PRIMARY KEY,
				record_id TEXT NOT NULL DEFAULT '',
				kind TEXT NOT NULL DEFAULT '',
				local_path TEXT NOT NULL DEFAULT '',
				remote_url TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'active',
				created_at INTEGER NOT NULL DEFAULT 0,
				updated_at INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS sync_log (
				id TEXT PRIMARY KEY,
				operation TEXT NOT NULL,
				kind TEXT NOT NULL,
				target_id TEXT NOT NULL DEFAULT '',
				outcome TEXT NOT NULL,
				error TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL DEFAULT 0
			)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func stepRecordSyncColumns(ctx context.Context, db *sql.DB, _ logging.Logger) error {
	adds := []struct {
		col string
		ddl string
	}{
		{"sync_status", `TEXT NOT NULL DEFAULT 'pending'`},
		{"version", `INTEGER NOT NULL DEFAULT 0`},
	}
	for _, a := range adds {
		ok, err := columnExists(ctx, db, "records", a.col)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := db.ExecContext(ctx,
			fmt.Sprintf("ALTER TABLE records ADD COLUMN %s %s", a.col, a.ddl)); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_scan_code
		 ON records(scan_code) WHERE deleted_at IS NULL`)
	return err
}

func stepNormalizeMediaAssets(ctx context.Context, db *sql.DB, log logging.Logger) error {
	return normalizeShape(ctx, db, log, mediaAssetsShape)
}
