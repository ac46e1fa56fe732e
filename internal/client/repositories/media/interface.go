// Package media persists MediaAsset rows. An asset belongs to exactly one
// record and is removed together with it via DeleteByRecord.
package media

import (
	"context"

	"github.com/memoria-app/memoria/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, a *models.MediaAsset) error
	GetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	ListByRecord(ctx context.Context, recordID string) ([]models.MediaAsset, error)
	DeleteByRecord(ctx context.Context, recordID string) error
	Delete(ctx context.Context, id string) error
	MarkSyncStatus(ctx context.Context, id string, status models.SyncStatus) error
	SetLocalPath(ctx context.Context, id, path string, sizeBytes int64) error
	Count(ctx context.Context) (int, error)
}
