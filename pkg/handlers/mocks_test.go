package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/services"
)

// mockDocumentService implements services.DocumentService with per-method
// function fields.
type mockDocumentService struct {
	IngestFunc    func(ctx context.Context, clientID uuid.UUID, storageKey, format, rawText string) (*models.Document, error)
	GetFunc       func(ctx context.Context, id uuid.UUID) (*models.Document, []*models.ParameterCandidate, error)
	ReprocessFunc func(ctx context.Context, id uuid.UUID) error
}

var _ services.DocumentService = (*mockDocumentService)(nil)

func (m *mockDocumentService) Ingest(ctx context.Context, clientID uuid.UUID, storageKey, format, rawText string) (*models.Document, error) {
	return m.IngestFunc(ctx, clientID, storageKey, format, rawText)
}

func (m *mockDocumentService) Get(ctx context.Context, id uuid.UUID) (*models.Document, []*models.ParameterCandidate, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockDocumentService) Reprocess(ctx context.Context, id uuid.UUID) error {
	return m.ReprocessFunc(ctx, id)
}

// mockReviewService implements services.ReviewService.
type mockReviewService struct {
	ApproveFunc      func(ctx context.Context, id uuid.UUID, actor string, remarks *string) error
	RejectFunc       func(ctx context.Context, id uuid.UUID, actor string, remarks *string) error
	ReopenFunc       func(ctx context.Context, id uuid.UUID, actor, reason string) error
	GetFunc          func(ctx context.Context, id uuid.UUID) (*models.ParameterCandidate, error)
	ListByStatusFunc func(ctx context.Context, status models.ApprovalStatus, limit int) ([]*models.ParameterCandidate, error)
}

var _ services.ReviewService = (*mockReviewService)(nil)

func (m *mockReviewService) Approve(ctx context.Context, id uuid.UUID, actor string, remarks *string) error {
	return m.ApproveFunc(ctx, id, actor, remarks)
}

func (m *mockReviewService) Reject(ctx context.Context, id uuid.UUID, actor string, remarks *string) error {
	return m.RejectFunc(ctx, id, actor, remarks)
}

func (m *mockReviewService) Reopen(ctx context.Context, id uuid.UUID, actor, reason string) error {
	return m.ReopenFunc(ctx, id, actor, reason)
}

func (m *mockReviewService) Get(ctx context.Context, id uuid.UUID) (*models.ParameterCandidate, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockReviewService) ListByStatus(ctx context.Context, status models.ApprovalStatus, limit int) ([]*models.ParameterCandidate, error) {
	return m.ListByStatusFunc(ctx, status, limit)
}

// mockMappingService implements services.MappingService.
type mockMappingService struct {
	RemapFunc          func(ctx context.Context, id uuid.UUID, actor string, target *string) error
	MappingChoicesFunc func(ctx context.Context, id uuid.UUID) ([]string, error)
}

var _ services.MappingService = (*mockMappingService)(nil)

func (m *mockMappingService) Remap(ctx context.Context, id uuid.UUID, actor string, target *string) error {
	return m.RemapFunc(ctx, id, actor, target)
}

func (m *mockMappingService) MappingChoices(ctx context.Context, id uuid.UUID) ([]string, error) {
	return m.MappingChoicesFunc(ctx, id)
}

func strPtr(s string) *string { return &s }
