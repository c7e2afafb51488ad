package apperrors

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrStateConflict is returned when a moderation action was issued against a
	// candidate whose status changed since it was read. Callers should re-read
	// and retry with fresh state.
	ErrStateConflict = errors.New("state conflict: candidate status changed, retry with fresh state")

	// ErrMappingCycle is returned when a remap would point a candidate at its
	// own canonical name.
	ErrMappingCycle = errors.New("mapping cycle: candidate cannot map to itself")

	// ErrUnknownTarget is returned when a remap target is not among the
	// approved canonical names.
	ErrUnknownTarget = errors.New("unknown mapping target")

	// ErrDocumentLeased is returned when a reprocess request hits a document
	// that is currently leased by a worker.
	ErrDocumentLeased = errors.New("document is currently being processed")
)
