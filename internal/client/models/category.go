package models

// Category groups records for browsing. RecordCount is denormalized and
// recomputed by the sync coordinator after each record batch.
type Category struct {
	ID          string
	Name        string
	SortOrder   int
	RecordCount int
	Status      RecordStatus
}
