// Package metadata is a small key/value table for client bookkeeping, most
// importantly the per-kind "last sync attempt" and "last sync success"
// marks the staleness decision reads.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
