package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus is the processing state of an uploaded health report.
// The stored value is the enum itself; Display derives the human-readable view.
type DocumentStatus string

const (
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Display returns the human-readable form of the status.
func (s DocumentStatus) Display() string {
	switch s {
	case DocumentStatusQueued:
		return "Queued"
	case DocumentStatusProcessing:
		return "Processing"
	case DocumentStatusCompleted:
		return "Completed"
	case DocumentStatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// Document is one uploaded health report handed over by the storage
// collaborator. RawText is the already-extracted text content; the original
// file stays in object storage under StorageKey.
type Document struct {
	ID            uuid.UUID      `json:"id"`
	ClientID      uuid.UUID      `json:"client_id"`
	StorageKey    string         `json:"storage_key"`
	Format        string         `json:"format,omitempty"`
	RawText       string         `json:"-"`
	Status        DocumentStatus `json:"status"`
	FailureReason *string        `json:"failure_reason,omitempty"`
	Attempts      int            `json:"attempts"`
	LeasedUntil   *time.Time     `json:"leased_until,omitempty"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
}

// Leased reports whether the document currently holds an unexpired worker lease.
func (d *Document) Leased(now time.Time) bool {
	return d.Status == DocumentStatusProcessing && d.LeasedUntil != nil && d.LeasedUntil.After(now)
}
