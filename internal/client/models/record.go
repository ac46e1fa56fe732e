// Package models defines the entity types persisted in the local store and
// the descriptors received from the remote source of truth.
package models

import "time"

// Kind identifies one of the fixed entity kinds the store manages.
type Kind string

const (
	KindRecord   Kind = "record"
	KindMedia    Kind = "media"
	KindCategory Kind = "category"
)

// RecordStatus is the presentation status of a record.
type RecordStatus string

const (
	RecordStatusActive RecordStatus = "active"
	RecordStatusHidden RecordStatus = "hidden"
)

// SyncStatus tracks whether a local row matches the remote source.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// Story is a narrative fragment embedded in a record. Stored as JSON
// inside the records table, not as its own entity.
type Story struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	SortOrder int    `json:"sort_order"`
}

// MemorialRecord is the central entity: one memorialized person or place,
// resolved from a unique scan code. The scan code is unique among
// non-deleted records; soft-deleted rows keep theirs but are invisible to
// every read path.
type MemorialRecord struct {
	ID           string
	Name         string
	Description  string
	CategoryID   string
	Version      int
	ImagePath    string
	VideoPath    string
	HologramPath string
	AudioPaths   []string
	Stories      []Story
	ScanCode     string
	Status       RecordStatus
	SyncStatus   SyncStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Deleted reports whether the record has been soft-deleted.
func (r *MemorialRecord) Deleted() bool { return r.DeletedAt != nil }
