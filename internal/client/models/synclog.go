package models

import "time"

// Operation names what a sync log entry describes.
type Operation string

const (
	OperationSyncEntity Operation = "sync_entity"
	OperationSyncBatch  Operation = "sync_batch"
)

// Outcome is the terminal result of one operation.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// SyncLogEntry is one append-only audit record. Entries are never mutated
// after insert; old ones are pruned by age.
type SyncLogEntry struct {
	ID        string
	Operation Operation
	Kind      Kind
	TargetID  string
	Outcome   Outcome
	Error     string
	CreatedAt time.Time
}
