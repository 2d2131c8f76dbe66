package domain

import "time"

// Record is the last-known field set of a deleted document.
type Record map[string]any

// String returns the field as a string when it holds one.
func (r Record) String(field string) (string, bool) {
	if r == nil {
		return "", false
	}
	s, ok := r[field].(string)
	return s, ok
}

// DeletionEvent is a record-deletion notification delivered by the
// document store trigger.
type DeletionEvent struct {
	ID         string
	Collection string
	DocumentID string
	Document   string
	OldValue   Record
}

// OrphanStatus values for OrphanedObject.Status.
const (
	OrphanPending  = "pending"
	OrphanResolved = "resolved"
)

// OrphanedObject is a storage object whose cleanup failed and which is kept
// for a later sweep.
type OrphanedObject struct {
	ID         int64     `json:"id" db:"id"`
	Collection string    `json:"collection" db:"collection"`
	DocumentID string    `json:"document_id" db:"document_id"`
	ObjectPath string    `json:"object_path" db:"object_path"`
	LastError  string    `json:"last_error" db:"last_error"`
	Attempts   int       `json:"attempts" db:"attempts"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SweepSummary reports the outcome of a sweep over pending orphans.
type SweepSummary struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}
