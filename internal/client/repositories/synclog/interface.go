// Package synclog persists the append-only sync audit trail. Entries are
// never mutated after insert; old ones are pruned by age.
package synclog

import (
	"context"
	"time"

	"github.com/memoria-app/memoria/internal/client/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.SyncLogEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.SyncLogEntry, error)
	CountByOutcome(ctx context.Context) (map[models.Outcome]int, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
