package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/apperrors"
	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/repositories"
)

// ErrReasonRequired is returned when a reopen request carries no reason.
// Reopening overrides a recorded moderation decision, so the override must
// leave an audit trail.
var ErrReasonRequired = errors.New("reopen reason is required")

// ReviewService applies moderator decisions to parameter candidates. All
// transitions are compare-and-set against the status the moderator saw, so two
// moderators acting on the same candidate cannot silently overwrite each other.
type ReviewService interface {
	// Approve moves a pending candidate to approved and exports its
	// projection to the document store.
	Approve(ctx context.Context, candidateID uuid.UUID, actor string, remarks *string) error

	// Reject moves a pending candidate to rejected. Remarks are recommended
	// but not required.
	Reject(ctx context.Context, candidateID uuid.UUID, actor string, remarks *string) error

	// Reopen returns an approved or rejected candidate to pending. The reason
	// is required and recorded on the candidate. An approved candidate's
	// exported projection is withdrawn.
	Reopen(ctx context.Context, candidateID uuid.UUID, actor, reason string) error

	// Get returns one candidate.
	Get(ctx context.Context, candidateID uuid.UUID) (*models.ParameterCandidate, error)

	// ListByStatus returns candidates in the given moderation state.
	ListByStatus(ctx context.Context, status models.ApprovalStatus, limit int) ([]*models.ParameterCandidate, error)
}

type reviewService struct {
	candidates repositories.CandidateRepository
	export     ExportService
	logger     *zap.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(candidates repositories.CandidateRepository, export ExportService, logger *zap.Logger) ReviewService {
	return &reviewService{
		candidates: candidates,
		export:     export,
		logger:     logger.Named("review"),
	}
}

func (s *reviewService) Approve(ctx context.Context, candidateID uuid.UUID, actor string, remarks *string) error {
	err := s.candidates.TransitionStatus(ctx, candidateID,
		models.ApprovalStatusPending, models.ApprovalStatusApproved, actor, remarks)
	if err != nil {
		return err
	}

	candidate, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("failed to load candidate after approval: %w", err)
	}

	if err := s.export.ExportApproved(ctx, candidate); err != nil {
		// The approval itself is committed; export is re-driven on the next
		// approve/reopen cycle rather than rolled back.
		s.logger.Error("failed to export approved parameter",
			zap.String("candidate_id", candidateID.String()),
			zap.Error(err))
	}

	s.logger.Info("candidate approved",
		zap.String("candidate_id", candidateID.String()),
		zap.String("actor", actor))
	return nil
}

func (s *reviewService) Reject(ctx context.Context, candidateID uuid.UUID, actor string, remarks *string) error {
	err := s.candidates.TransitionStatus(ctx, candidateID,
		models.ApprovalStatusPending, models.ApprovalStatusRejected, actor, remarks)
	if err != nil {
		return err
	}

	if remarks == nil || *remarks == "" {
		s.logger.Warn("candidate rejected without remarks",
			zap.String("candidate_id", candidateID.String()),
			zap.String("actor", actor))
	} else {
		s.logger.Info("candidate rejected",
			zap.String("candidate_id", candidateID.String()),
			zap.String("actor", actor))
	}

	return nil
}

func (s *reviewService) Reopen(ctx context.Context, candidateID uuid.UUID, actor, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}

	candidate, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return err
	}
	if !candidate.Status.Terminal() {
		return apperrors.ErrStateConflict
	}

	wasApproved := candidate.Status == models.ApprovalStatusApproved

	err = s.candidates.TransitionStatus(ctx, candidateID,
		candidate.Status, models.ApprovalStatusPending, actor, &reason)
	if err != nil {
		return err
	}

	if wasApproved {
		if err := s.export.Withdraw(ctx, candidateID); err != nil {
			s.logger.Error("failed to withdraw exported parameter",
				zap.String("candidate_id", candidateID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("candidate reopened",
		zap.String("candidate_id", candidateID.String()),
		zap.String("actor", actor),
		zap.String("reason", reason),
		zap.String("previous_status", string(candidate.Status)))
	return nil
}

func (s *reviewService) Get(ctx context.Context, candidateID uuid.UUID) (*models.ParameterCandidate, error) {
	return s.candidates.GetByID(ctx, candidateID)
}

func (s *reviewService) ListByStatus(ctx context.Context, status models.ApprovalStatus, limit int) ([]*models.ParameterCandidate, error) {
	return s.candidates.ListByStatus(ctx, status, limit)
}
