package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/common"
	"github.com/memoria-app/memoria/internal/dbx"
	"github.com/memoria-app/memoria/internal/timex"
)

const recordColumns = `id, name, description, category_id, image_path, video_path,
	hologram_path, audio_paths, stories, scan_code, status, sync_status, version,
	created_at, updated_at, deleted_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db    dbx.DBTX
	clock timex.Clock
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX, clock timex.Clock) *SQLiteRepository {
	return &SQLiteRepository{db: db, clock: clock}
}

// Upsert inserts or replaces a record by id. created_at is preserved on
// update; updated_at is stamped with the current time either way.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.MemorialRecord) error {
	audio, err := json.Marshal(rec.AudioPaths)
	if err != nil {
		return fmt.Errorf("failed to encode audio paths: %w", err)
	}
	stories, err := json.Marshal(rec.Stories)
	if err != nil {
		return fmt.Errorf("failed to encode stories: %w", err)
	}

	now := r.clock.Now().Unix()
	query := `INSERT INTO records (id, name, description, category_id, image_path,
			video_path, hologram_path, audio_paths, stories, scan_code, status,
			sync_status, version, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category_id = excluded.category_id,
			image_path = excluded.image_path,
			video_path = excluded.video_path,
			hologram_path = excluded.hologram_path,
			audio_paths = excluded.audio_paths,
			stories = excluded.stories,
			scan_code = excluded.scan_code,
			status = excluded.status,
			sync_status = excluded.sync_status,
			version = excluded.version,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Description, rec.CategoryID, rec.ImagePath,
		rec.VideoPath, rec.HologramPath, string(audio), string(stories),
		rec.ScanCode, string(rec.Status), string(rec.SyncStatus), rec.Version,
		now, now, nullUnix(rec.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// GetByID returns a single non-deleted record.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.MemorialRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE deleted_at IS NULL AND id = ?`, id)
	return scanRecord(row)
}

// GetByScanCode resolves a scan code to its record. Soft-deleted rows are
// invisible here even though they physically remain.
func (r *SQLiteRepository) GetByScanCode(ctx context.Context, code string) (*models.MemorialRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE deleted_at IS NULL AND scan_code = ?`, code)
	return scanRecord(row)
}

// List returns all non-deleted records.
func (r *SQLiteRepository) List(ctx context.Context) ([]models.MemorialRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.MemorialRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDelete stamps deleted_at, hiding the row from every read path.
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string) error {
	now := r.clock.Now().Unix()
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

// HardDelete physically removes a row. Used by sync when the remote source
// no longer knows the record at all.
func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to hard delete record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE records SET sync_status = ?, updated_at = ? WHERE id = ?`,
		string(status), r.clock.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark record sync status: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE deleted_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountBySyncStatus(ctx context.Context) (map[models.SyncStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sync_status, COUNT(*) FROM records WHERE deleted_at IS NULL GROUP BY sync_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records by sync status: %w", err)
	}
	defer rows.Close()

	result := make(map[models.SyncStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		result[models.SyncStatus(status)] = n
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, COUNT(*) FROM records WHERE deleted_at IS NULL GROUP BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records by category: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		result[id] = n
	}
	return result, rows.Err()
}

// OldestUpdatedAt returns the update stamp of the most stale live record,
// or nil when the table is empty. The sync coordinator samples it to decide
// whether local data itself has gone stale.
func (r *SQLiteRepository) OldestUpdatedAt(ctx context.Context) (*time.Time, error) {
	var unix sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(updated_at) FROM records WHERE deleted_at IS NULL`).Scan(&unix)
	if err != nil {
		return nil, fmt.Errorf("failed to sample record freshness: %w", err)
	}
	if !unix.Valid {
		return nil, nil
	}
	t := time.Unix(unix.Int64, 0)
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.MemorialRecord, error) {
	var (
		rec        models.MemorialRecord
		audio      string
		stories    string
		status     string
		syncStatus string
		createdAt  int64
		updatedAt  int64
		deletedAt  sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.CategoryID,
		&rec.ImagePath, &rec.VideoPath, &rec.HologramPath, &audio, &stories,
		&rec.ScanCode, &status, &syncStatus, &rec.Version,
		&createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(audio), &rec.AudioPaths); err != nil {
		return nil, fmt.Errorf("failed to decode audio paths: %w", err)
	}
	if err := json.Unmarshal([]byte(stories), &rec.Stories); err != nil {
		return nil, fmt.Errorf("failed to decode stories: %w", err)
	}
	rec.Status = models.RecordStatus(status)
	rec.SyncStatus = models.SyncStatus(syncStatus)
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	if deletedAt.Valid {
		t := time.Unix(deletedAt.Int64, 0)
		rec.DeletedAt = &t
	}
	return &rec, nil
}

func nullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
