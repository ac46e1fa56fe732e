package synclog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/dbx"
	"github.com/memoria-app/memoria/internal/timex"
)

type SQLiteRepository struct {
	db    dbx.DBTX
	clock timex.Clock
}

func NewSQLiteRepository(db dbx.DBTX, clock timex.Clock) *SQLiteRepository {
	return &SQLiteRepository{db: db, clock: clock}
}

// Append inserts one audit entry. The id and timestamp are assigned here if
// the caller left them empty.
func (r *SQLiteRepository) Append(ctx context.Context, e *models.SyncLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.clock.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, operation, kind, target_id, outcome, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Operation), string(e.Kind), e.TargetID,
		string(e.Outcome), e.Error, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append sync log entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, operation, kind, target_id, outcome, error, created_at
		 FROM sync_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync log: %w", err)
	}
	defer rows.Close()

	var result []models.SyncLogEntry
	for rows.Next() {
		var (
			e         models.SyncLogEntry
			operation string
			kind      string
			outcome   string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &operation, &kind, &e.TargetID, &outcome, &e.Error, &createdAt); err != nil {
			return nil, err
		}
		e.Operation = models.Operation(operation)
		e.Kind = models.Kind(kind)
		e.Outcome = models.Outcome(outcome)
		e.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountByOutcome(ctx context.Context) (map[models.Outcome]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM sync_log GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync log: %w", err)
	}
	defer rows.Close()

	result := make(map[models.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		result[models.Outcome(outcome)] = n
	}
	return result, rows.Err()
}

// PruneOlderThan deletes entries created before cutoff and reports how many
// were removed.
func (r *SQLiteRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_log WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync log: %w", err)
	}
	return res.RowsAffected()
}
