// Package categories persists the small fixed set of browsing categories.
package categories

import (
	"context"

	"github.com/memoria-app/memoria/internal/client/models"
)

type Repository interface {
	SeedDefaults(ctx context.Context) error
	Upsert(ctx context.Context, c *models.Category) error
	List(ctx context.Context) ([]models.Category, error)
	SetRecordCount(ctx context.Context, id string, count int) error
	Count(ctx context.Context) (int, error)
}
