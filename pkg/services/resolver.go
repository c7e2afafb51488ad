package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/apperrors"
	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/repositories"
)

// MappingService resolves candidate names to canonical parameter identities
// and handles explicit moderator re-mapping. Automatic resolution only reuses
// exact (case- and whitespace-normalized) matches; anything fuzzier is a
// moderator decision, so clinically distinct parameters are never merged
// silently.
type MappingService interface {
	// Remap points a candidate at an existing canonical name, or at nil to
	// make it stand alone. Actor identifies the moderator for the audit
	// trail. Self-referential targets fail with apperrors.ErrMappingCycle;
	// targets outside the approved canonical set fail with
	// apperrors.ErrUnknownTarget. Setting the same target twice is a no-op.
	Remap(ctx context.Context, candidateID uuid.UUID, actor string, target *string) error

	// MappingChoices returns the distinct approved canonical names a
	// candidate may be mapped to, excluding the candidate's own identity.
	MappingChoices(ctx context.Context, candidateID uuid.UUID) ([]string, error)
}

type mappingService struct {
	candidates repositories.CandidateRepository
	logger     *zap.Logger
}

// NewMappingService creates a new MappingService.
func NewMappingService(candidates repositories.CandidateRepository, logger *zap.Logger) MappingService {
	return &mappingService{
		candidates: candidates,
		logger:     logger.Named("mapping"),
	}
}

// NormalizeCanonical is the comparison form of a canonical name: lowercased,
// trimmed, interior whitespace collapsed.
func NormalizeCanonical(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// ResolveCanonical decides a freshly validated candidate's canonical identity
// against the names already in use. An exact normalized match to a different
// spelling reuses the existing representative; a moderator-curated alias
// reuses its mapping target; otherwise the candidate stands alone (nil)
// pending moderator confirmation. Aliases are keyed by normalized name.
func ResolveCanonical(name string, canonical []string, aliases map[string]string) *string {
	norm := NormalizeCanonical(name)
	for _, canon := range canonical {
		if NormalizeCanonical(canon) != norm {
			continue
		}
		if canon == name {
			// Already the canonical spelling; no mapping row needed.
			return nil
		}
		target := canon
		return &target
	}

	if target, ok := aliases[norm]; ok && NormalizeCanonical(target) != norm {
		t := target
		return &t
	}

	return nil
}

// NormalizeAliases rekeys a raw alias map by NormalizeCanonical so lookups
// match ResolveCanonical's comparison form.
func NormalizeAliases(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	aliases := make(map[string]string, len(raw))
	for alias, target := range raw {
		aliases[NormalizeCanonical(alias)] = target
	}
	return aliases
}

func (s *mappingService) Remap(ctx context.Context, candidateID uuid.UUID, actor string, target *string) error {
	candidate, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return err
	}

	if target == nil {
		if candidate.MappedTo == nil {
			return nil
		}
		s.logger.Info("mapping cleared",
			zap.String("candidate_id", candidateID.String()),
			zap.String("actor", actor),
			zap.String("previous", *candidate.MappedTo))
		return s.candidates.SetMapping(ctx, candidateID, nil)
	}

	identity := candidate.Name
	if candidate.ValidatedName != nil && *candidate.ValidatedName != "" {
		identity = *candidate.ValidatedName
	}
	if NormalizeCanonical(*target) == NormalizeCanonical(identity) {
		return apperrors.ErrMappingCycle
	}

	// Idempotent: re-applying the current target changes nothing and leaves
	// no duplicate audit trail.
	if candidate.MappedTo != nil && *candidate.MappedTo == *target {
		return nil
	}

	canonical, err := s.candidates.DistinctApprovedCanonicalNames(ctx)
	if err != nil {
		return err
	}
	if !containsCanonical(canonical, *target) {
		return apperrors.ErrUnknownTarget
	}

	if err := s.candidates.SetMapping(ctx, candidateID, target); err != nil {
		return err
	}

	s.logger.Info("candidate remapped",
		zap.String("candidate_id", candidateID.String()),
		zap.String("actor", actor),
		zap.String("target", *target))
	return nil
}

func (s *mappingService) MappingChoices(ctx context.Context, candidateID uuid.UUID) ([]string, error) {
	candidate, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	canonical, err := s.candidates.DistinctApprovedCanonicalNames(ctx)
	if err != nil {
		return nil, err
	}

	return MappingChoicesFor(candidate, canonical), nil
}

// MappingChoicesFor computes the self-excluded, deduplicated canonical-name
// choices for a candidate. Pure function over the canonical set so it can be
// exercised without storage.
func MappingChoicesFor(candidate *models.ParameterCandidate, canonical []string) []string {
	self := NormalizeCanonical(candidate.CanonicalName())

	choices := make([]string, 0, len(canonical))
	seen := make(map[string]struct{}, len(canonical))
	for _, canon := range canonical {
		norm := NormalizeCanonical(canon)
		if norm == self {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		choices = append(choices, canon)
	}

	return choices
}

func containsCanonical(canonical []string, target string) bool {
	norm := NormalizeCanonical(target)
	for _, canon := range canonical {
		if NormalizeCanonical(canon) == norm {
			return true
		}
	}
	return false
}
