// Package store owns the local SQLite database: opening it, evolving its
// schema across releases, and repairing tables whose live shape has drifted
// from what the current code expects. Nothing else may touch the database
// until Open has returned.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/memoria-app/memoria/internal/logging"

	_ "modernc.org/sqlite"
)

// Store wraps the process-wide database handle. It is opened once by the
// composition root and shared by every repository.
type Store struct {
	db  *sql.DB
	log logging.Logger
}

// Open opens (creating if necessary) the database at dsn, applies pragmas,
// runs all pending schema migrations and verifies the required-objects
// invariant. The returned Store is only handed out after the schema is at
// CurrentSchemaVersion, so concurrent traffic never races a migration.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer; keeping one connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := Migrate(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, log: log}, nil
}

// DB returns the underlying handle for repository construction.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion reads the persisted schema revision.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return currentVersion(ctx, s.db)
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}
