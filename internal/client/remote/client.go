// Package remote talks to the authoritative backend. The coordinator only
// depends on the Client interface; the exact wire protocol stays behind it.
package remote

import (
	"context"

	"github.com/memoria-app/memoria/internal/client/models"
)

// Client is the remote-fetch collaborator consumed by the sync coordinator.
type Client interface {
	// IsOnline probes connectivity. Cheap enough to call before every batch.
	IsOnline(ctx context.Context) bool

	// ListRecords fetches the authoritative record listing.
	ListRecords(ctx context.Context) ([]models.RemoteRecord, error)

	// ListMedia fetches the authoritative media listing.
	ListMedia(ctx context.Context) ([]models.RemoteMedia, error)

	// FetchPayload downloads one payload by its URL.
	FetchPayload(ctx context.Context, url string) ([]byte, error)
}
