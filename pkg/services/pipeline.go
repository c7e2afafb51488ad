package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/extract"
	"github.com/medscan-io/report-engine/pkg/logging"
	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/repositories"
	"github.com/medscan-io/report-engine/pkg/retry"
	"github.com/medscan-io/report-engine/pkg/validator"
)

// PipelineService runs the extraction and validation pipeline for one claimed
// document: extract candidates, persist them pending, validate their names
// against the external authority in a single batched call, write the validated
// names back, and resolve canonical mappings for exact matches.
type PipelineService interface {
	// Process runs the full pipeline for a document the caller has already
	// claimed. On success the document is marked completed. A non-nil error
	// means the document was left processing; the lease expiry requeues it.
	Process(ctx context.Context, doc *models.Document) error
}

// PipelineDeps holds the dependencies for the pipeline service.
type PipelineDeps struct {
	Documents  repositories.DocumentRepository
	Candidates repositories.CandidateRepository
	Strategies *extract.Registry
	Validator  validator.Client
	Retry      *retry.Config
	Logger     *zap.Logger
}

type pipelineService struct {
	documents  repositories.DocumentRepository
	candidates repositories.CandidateRepository
	strategies *extract.Registry
	validator  validator.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(deps PipelineDeps) PipelineService {
	retryCfg := deps.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &pipelineService{
		documents:  deps.Documents,
		candidates: deps.Candidates,
		strategies: deps.Strategies,
		validator:  deps.Validator,
		retryCfg:   retryCfg,
		logger:     deps.Logger.Named("pipeline"),
	}
}

func (s *pipelineService) Process(ctx context.Context, doc *models.Document) error {
	logger := s.logger.With(
		zap.String("document_id", doc.ID.String()),
		zap.Int("attempt", doc.Attempts),
	)

	strategy := s.strategies.Select(doc.Format)
	result, err := strategy.Extract(doc.RawText)
	if err != nil {
		// Extraction errors are deterministic: the same text fails the same
		// way on every attempt, so retrying is pointless.
		logger.Error("extraction failed", zap.String("strategy", strategy.Name()), zap.Error(err))
		return s.fail(ctx, doc, fmt.Sprintf("extraction failed: %v", err))
	}

	logger.Info("extraction finished",
		zap.String("strategy", strategy.Name()),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("dropped", result.Dropped))

	if len(result.Candidates) == 0 {
		return s.fail(ctx, doc, "no candidates extracted")
	}

	candidates := make([]*models.ParameterCandidate, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		// Extracted values are sensitive; logs only ever record their presence.
		logger.Debug("candidate extracted",
			zap.String("name", c.Name),
			zap.String("value", logging.RedactValue(c.Value)),
			zap.String("unit", c.Unit))
		candidates = append(candidates, &models.ParameterCandidate{
			DocumentID:     doc.ID,
			Name:           c.Name,
			Value:          c.Value,
			Unit:           c.Unit,
			ReferenceRange: c.ReferenceRange,
			Method:         c.Method,
		})
	}

	if err := s.candidates.CreateBatch(ctx, candidates); err != nil {
		return fmt.Errorf("failed to persist candidates: %w", err)
	}

	// Reprocessing reuses rows from earlier runs: inserts above are no-ops on
	// (document_id, name) conflicts, and the validated names below overwrite.
	queries := make([]validator.NameQuery, 0, len(candidates))
	for _, c := range candidates {
		queries = append(queries, validator.NameQuery{
			Name:   c.Name,
			Unit:   c.Unit,
			Method: c.Method,
		})
	}

	var results []validator.Result
	err = retry.DoIfRetryable(ctx, s.retryCfg, func() error {
		var verr error
		results, verr = s.validator.ValidateNames(ctx, queries)
		return verr
	})
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-run. Leave the document processing; the lease
			// expiry makes it claimable again. Only the parent context
			// counts here: a per-request validator timeout also unwraps to
			// context.DeadlineExceeded but is an ordinary transport failure.
			return err
		}
		var protoErr *validator.ProtocolError
		if errors.As(err, &protoErr) {
			// The authority answered but not in the agreed shape. Retrying the
			// same batch tends to reproduce the same answer, so fail now.
			logger.Error("validation protocol error", zap.Error(err))
			return s.fail(ctx, doc, fmt.Sprintf("validation failed: %v", err))
		}
		logger.Error("validation exhausted retries", zap.Error(err))
		return s.fail(ctx, doc, fmt.Sprintf("validation unavailable: %v", err))
	}

	validated := make(map[string]string, len(results))
	recognized := 0
	for _, r := range results {
		if !r.Recognized {
			continue
		}
		validated[r.Name] = r.ValidatedName
		recognized++
	}

	if err := s.candidates.SetValidatedNames(ctx, doc.ID, validated); err != nil {
		return fmt.Errorf("failed to store validated names: %w", err)
	}

	if err := s.resolveMappings(ctx, doc, validated); err != nil {
		return err
	}

	if err := s.documents.MarkCompleted(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	logger.Info("document processed",
		zap.Int("candidates", len(candidates)),
		zap.Int("recognized", recognized))
	return nil
}

// resolveMappings links freshly validated candidates to existing approved
// canonical names: exact normalized matches reuse the existing spelling, and
// moderator-curated aliases reuse their mapping target. Anything fuzzier
// stays unmapped for a moderator to decide.
func (s *pipelineService) resolveMappings(ctx context.Context, doc *models.Document, validated map[string]string) error {
	if len(validated) == 0 {
		return nil
	}

	canonical, err := s.candidates.DistinctApprovedCanonicalNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load canonical names: %w", err)
	}
	rawAliases, err := s.candidates.ApprovedCanonicalAliases(ctx)
	if err != nil {
		return fmt.Errorf("failed to load canonical aliases: %w", err)
	}
	if len(canonical) == 0 && len(rawAliases) == 0 {
		return nil
	}
	aliases := NormalizeAliases(rawAliases)

	stored, err := s.candidates.ListByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list document candidates: %w", err)
	}

	for _, c := range stored {
		name, ok := validated[c.Name]
		if !ok {
			continue
		}
		target := ResolveCanonical(name, canonical, aliases)
		if target == nil {
			continue
		}
		if err := s.candidates.SetMapping(ctx, c.ID, target); err != nil {
			return fmt.Errorf("failed to set canonical mapping: %w", err)
		}
		s.logger.Debug("candidate auto-mapped",
			zap.String("candidate_id", c.ID.String()),
			zap.String("target", *target))
	}

	return nil
}

// fail marks the document terminally failed. The marking itself must succeed
// for the failure to be terminal; otherwise the error propagates and the lease
// expiry gives the document another attempt.
func (s *pipelineService) fail(ctx context.Context, doc *models.Document, reason string) error {
	if err := s.documents.MarkFailed(ctx, doc.ID, reason); err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}
