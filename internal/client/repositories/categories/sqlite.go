package categories

import (
	"context"
	"fmt"

	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/dbx"
)

// defaultCategories is the one-time seed for a fresh store. INSERT OR
// IGNORE keeps reseeding harmless and never overwrites synced data.
var defaultCategories = []models.Category{
	{ID: "people", Name: "People", SortOrder: 1, Status: models.RecordStatusActive},
	{ID: "places", Name: "Places", SortOrder: 2, Status: models.RecordStatusActive},
	{ID: "events", Name: "Events", SortOrder: 3, Status: models.RecordStatusActive},
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SeedDefaults(ctx context.Context) error {
	for _, c := range defaultCategories {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (id, name, sort_order, record_count, status)
			 VALUES (?, ?, ?, 0, ?)`,
			c.ID, c.Name, c.SortOrder, string(c.Status))
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, sort_order, record_count, status)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sort_order = excluded.sort_order,
			status = excluded.status`,
		c.ID, c.Name, c.SortOrder, c.RecordCount, string(c.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, sort_order, record_count, status FROM categories ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		var c models.Category
		var status string
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.RecordCount, &status); err != nil {
			return nil, err
		}
		c.Status = models.RecordStatus(status)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetRecordCount refreshes the denormalized per-category record count.
func (r *SQLiteRepository) SetRecordCount(ctx context.Context, id string, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET record_count = ? WHERE id = ?`, count, id)
	if err != nil {
		return fmt.Errorf("failed to set category record count: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}
