// Package records persists MemorialRecord rows. Every read path excludes
// soft-deleted rows; every write stamps updated_at.
package records

import (
	"context"
	"time"

	"github.com/memoria-app/memoria/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, r *models.MemorialRecord) error
	GetByID(ctx context.Context, id string) (*models.MemorialRecord, error)
	GetByScanCode(ctx context.Context, code string) (*models.MemorialRecord, error)
	List(ctx context.Context) ([]models.MemorialRecord, error)
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
	MarkSyncStatus(ctx context.Context, id string, status models.SyncStatus) error
	Count(ctx context.Context) (int, error)
	CountBySyncStatus(ctx context.Context) (map[models.SyncStatus]int, error)
	CountByCategory(ctx context.Context) (map[string]int, error)
	OldestUpdatedAt(ctx context.Context) (*time.Time, error)
}
