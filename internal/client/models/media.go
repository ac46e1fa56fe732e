package models

import "time"

// MediaKind classifies a media asset.
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindHologram MediaKind = "hologram"
	MediaKindAudio    MediaKind = "audio"
)

// MediaAsset is a single downloadable asset belonging to exactly one
// MemorialRecord. At least one of LocalPath/RemoteURL is set: RemoteURL
// before the payload is materialized, LocalPath after. Assets are
// cascade-deleted with their owner.
type MediaAsset struct {
	ID          string
	RecordID    string
	Kind        MediaKind
	LocalPath   string
	RemoteURL   string
	SizeBytes   int64
	ContentType string
	Status      RecordStatus
	SyncStatus  SyncStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
