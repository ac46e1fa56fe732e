package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/memoria-app/memoria/internal/dbx"
	"github.com/memoria-app/memoria/internal/logging"
)

// column describes one column of a canonical table shape. ddl is the type
// and constraints used when creating the column; fill is the SQL literal
// substituted when salvaging rows from a legacy table that lacks it.
type column struct {
	name string
	ddl  string
	fill string
}

// tableShape is the canonical definition of one table: the shape current
// code expects, and the shape the normalizer rebuilds drifted tables into.
type tableShape struct {
	name    string
	columns []column
}

func (t tableShape) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// createSQL renders CREATE TABLE for the shape under the given name, so the
// same definition serves both the real table and its shadow.
func (t tableShape) createSQL(name string) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = c.name + " " + c.ddl
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
}

// tableExists reports whether a table is present in sqlite_master.
func tableExists(ctx context.Context, db dbx.DBTX, name string) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query sqlite_master: %w", err)
	}
	return true, nil
}

// tableColumns lists the live column names of a table via PRAGMA table_info.
func tableColumns(ctx context.Context, db dbx.DBTX, name string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", name))
	if err != nil {
		return nil, fmt.Errorf("PRAGMA table_info(%s): %w", name, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			colName   string
			colType   string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table_info row: %w", err)
		}
		cols[colName] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func columnExists(ctx context.Context, db dbx.DBTX, table, col string) (bool, error) {
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return false, err
	}
	return cols[col], nil
}

// normalizeShape brings a table whose live shape drifted from the canonical
// one back in line. If the table is missing it is created outright; if the
// live columns already cover the canonical set it is a no-op. Otherwise the
// rows are salvaged: a shadow table with the canonical shape is built,
// known columns are copied across, missing ones are filled with safe
// defaults, and the shadow atomically replaces the original.
//
// Normalization is best-effort. Any failure drops the shadow, leaves the
// original untouched, logs a warning and reports success, so a drifted
// table can never abort store opening.
func normalizeShape(ctx context.Context, db *sql.DB, log logging.Logger, shape tableShape) error {
	if err := normalize(ctx, db, shape); err != nil {
		shadow := shape.name + "_new"
		_, _ = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+shadow)
		log.Warn(ctx, "shape normalization failed, keeping existing table",
			"table", shape.name, "error", err)
	}
	return nil
}

func normalize(ctx context.Context, db *sql.DB, shape tableShape) error {
	exists, err := tableExists(ctx, db, shape.name)
	if err != nil {
		return err
	}
	if !exists {
		_, err := db.ExecContext(ctx, shape.createSQL(shape.name))
		return err
	}

	live, err := tableColumns(ctx, db, shape.name)
	if err != nil {
		return err
	}

	missing := false
	for _, c := range shape.columns {
		if !live[c.name] {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}

	shadow := shape.name + "_new"

	// Copy expressions: live columns verbatim, everything else defaulted.
	exprs := make([]string, len(shape.columns))
	for i, c := range shape.columns {
		if live[c.name] {
			exprs[i] = c.name
		} else {
			exprs[i] = c.fill
		}
	}

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+shadow); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, shape.createSQL(shadow)); err != nil {
			return err
		}
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			shadow,
			strings.Join(shape.columnNames(), ", "),
			strings.Join(exprs, ", "),
			shape.name)
		if _, err := tx.ExecContext(ctx, copySQL); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+shape.name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", shadow, shape.name)); err != nil {
			return err
		}
		return nil
	})
}
