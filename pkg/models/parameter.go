package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus is the moderation state of an extracted parameter.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Display returns the human-readable form of the status.
func (s ApprovalStatus) Display() string {
	switch s {
	case ApprovalStatusPending:
		return "Pending"
	case ApprovalStatusApproved:
		return "Approved"
	case ApprovalStatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// Terminal reports whether the status accepts no further normal moderation
// action. Re-opening a terminal candidate is a separate administrative
// operation, not a normal transition.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// ParameterCandidate is one extracted (name, value) pair tied to a document,
// moving through the moderation workflow. Value is sensitive and never leaves
// the service boundary; it is excluded from the validation payload by type
// construction (see validator.NameQuery).
//
// MappedTo is the moderator-curated canonical name this candidate resolves
// to. nil means the candidate stands alone as its own canonical identity.
type ParameterCandidate struct {
	ID             uuid.UUID      `json:"id"`
	DocumentID     uuid.UUID      `json:"document_id"`
	Name           string         `json:"name"`
	Value          string         `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	ReferenceRange string         `json:"reference_range,omitempty"`
	Method         string         `json:"method,omitempty"`
	ValidatedName  *string        `json:"validated_name,omitempty"`
	Status         ApprovalStatus `json:"status"`
	MappedTo       *string        `json:"mapped_to,omitempty"`
	ReviewedBy     *string        `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	Remarks        *string        `json:"remarks,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// CanonicalName returns the identity this candidate currently resolves to:
// the moderator mapping when set, else the validated name, else the raw
// extracted name.
func (c *ParameterCandidate) CanonicalName() string {
	if c.MappedTo != nil && *c.MappedTo != "" {
		return *c.MappedTo
	}
	if c.ValidatedName != nil && *c.ValidatedName != "" {
		return *c.ValidatedName
	}
	return c.Name
}

// ApprovedParameter is the projection of an approved candidate that is
// eligible for export to the downstream document store.
type ApprovedParameter struct {
	CanonicalName  string `json:"canonical_name"`
	Value          string `json:"value"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
	Method         string `json:"method,omitempty"`
}

// ExportProjection builds the downstream projection for an approved candidate.
func (c *ParameterCandidate) ExportProjection() ApprovedParameter {
	return ApprovedParameter{
		CanonicalName:  c.CanonicalName(),
		Value:          c.Value,
		Unit:           c.Unit,
		ReferenceRange: c.ReferenceRange,
		Method:         c.Method,
	}
}
