package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/repositories"
)

// ErrEmptyDocument is returned when an ingested document carries no text.
var ErrEmptyDocument = errors.New("document has no text content")

// DocumentService handles document intake and lifecycle queries. Documents
// enter queued; the worker pool picks them up from there.
type DocumentService interface {
	// Ingest registers an uploaded document and queues it for processing.
	Ingest(ctx context.Context, clientID uuid.UUID, storageKey, format, rawText string) (*models.Document, error)

	// Get returns a document with its extracted candidates.
	Get(ctx context.Context, id uuid.UUID) (*models.Document, []*models.ParameterCandidate, error)

	// Reprocess requeues a document for another pipeline run. Candidates
	// from earlier runs are kept; the pipeline upserts over them.
	Reprocess(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	documents  repositories.DocumentRepository
	candidates repositories.CandidateRepository
	logger     *zap.Logger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documents repositories.DocumentRepository, candidates repositories.CandidateRepository, logger *zap.Logger) DocumentService {
	return &documentService{
		documents:  documents,
		candidates: candidates,
		logger:     logger.Named("documents"),
	}
}

func (s *documentService) Ingest(ctx context.Context, clientID uuid.UUID, storageKey, format, rawText string) (*models.Document, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyDocument
	}

	doc := &models.Document{
		ClientID:   clientID,
		StorageKey: storageKey,
		Format:     strings.ToLower(strings.TrimSpace(format)),
		RawText:    rawText,
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document queued",
		zap.String("document_id", doc.ID.String()),
		zap.String("format", doc.Format),
		zap.Int("text_bytes", len(rawText)))
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*models.Document, []*models.ParameterCandidate, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := s.candidates.ListByDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return doc, candidates, nil
}

func (s *documentService) Reprocess(ctx context.Context, id uuid.UUID) error {
	if err := s.documents.Requeue(ctx, id); err != nil {
		return err
	}

	s.logger.Info("document requeued", zap.String("document_id", id.String()))
	return nil
}
