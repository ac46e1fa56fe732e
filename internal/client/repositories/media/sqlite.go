package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/common"
	"github.com/memoria-app/memoria/internal/dbx"
	"github.com/memoria-app/memoria/internal/timex"
)

const assetColumns = `id, record_id, kind, local_path, remote_url, size_bytes,
	content_type, status, sync_status, created_at, updated_at`

type SQLiteRepository struct {
	db    dbx.DBTX
	clock timex.Clock
}

func NewSQLiteRepository(db dbx.DBTX, clock timex.Clock) *SQLiteRepository {
	return &SQLiteRepository{db: db, clock: clock}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, a *models.MediaAsset) error {
	now := r.clock.Now().Unix()
	query := `INSERT INTO media_assets (id, record_id, kind, local_path, remote_url,
			size_bytes, content_type, status, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			record_id = excluded.record_id,
			kind = excluded.kind,
			local_path = excluded.local_path,
			remote_url = excluded.remote_url,
			size_bytes = excluded.size_bytes,
			content_type = excluded.content_type,
			status = excluded.status,
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.RecordID, string(a.Kind), a.LocalPath, a.RemoteURL,
		a.SizeBytes, a.ContentType, string(a.Status), string(a.SyncStatus), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert media asset: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE id = ?`, id)
	return scanAsset(row)
}

func (r *SQLiteRepository) ListByRecord(ctx context.Context, recordID string) ([]models.MediaAsset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE record_id = ? ORDER BY kind, id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to select media assets: %w", err)
	}
	defer rows.Close()

	var result []models.MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByRecord removes every asset owned by a record. Called whenever the
// owning record is deleted so no orphans survive.
func (r *SQLiteRepository) DeleteByRecord(ctx context.Context, recordID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM media_assets WHERE record_id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("failed to cascade delete media assets: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM media_assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media asset: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE media_assets SET sync_status = ?, updated_at = ? WHERE id = ?`,
		string(status), r.clock.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark media sync status: %w", err)
	}
	return nil
}

// SetLocalPath records where a fetched payload was materialized.
func (r *SQLiteRepository) SetLocalPath(ctx context.Context, id, path string, sizeBytes int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE media_assets SET local_path = ?, size_bytes = ?, updated_at = ? WHERE id = ?`,
		path, sizeBytes, r.clock.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to set media local path: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_assets`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count media assets: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.MediaAsset, error) {
	var (
		a          models.MediaAsset
		kind       string
		status     string
		syncStatus string
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&a.ID, &a.RecordID, &kind, &a.LocalPath, &a.RemoteURL,
		&a.SizeBytes, &a.ContentType, &status, &syncStatus, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media asset: %w", err)
	}
	a.Kind = models.MediaKind(kind)
	a.Status = models.RecordStatus(status)
	a.SyncStatus = models.SyncStatus(syncStatus)
	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updatedAt, 0)
	return &a, nil
}
