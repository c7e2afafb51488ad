package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medscan-io/report-engine/pkg/apperrors"
	"github.com/medscan-io/report-engine/pkg/database"
	"github.com/medscan-io/report-engine/pkg/models"
)

// CandidateRepository provides data access for extracted parameter candidates.
type CandidateRepository interface {
	// CreateBatch inserts candidates in pending state. Re-running the same
	// document's pipeline is safe: the (document_id, name) uniqueness makes
	// duplicate inserts no-ops.
	CreateBatch(ctx context.Context, candidates []*models.ParameterCandidate) error

	// GetByID returns a single candidate, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.ParameterCandidate, error)

	// ListByDocument returns all candidates for one document in extraction order.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*models.ParameterCandidate, error)

	// ListByStatus returns candidates filtered by approval status.
	ListByStatus(ctx context.Context, status models.ApprovalStatus, limit int) ([]*models.ParameterCandidate, error)

	// SetValidatedNames writes back the naming authority's answers for one
	// document, keyed by raw extracted name.
	SetValidatedNames(ctx context.Context, documentID uuid.UUID, names map[string]string) error

	// SetMapping updates a candidate's canonical mapping. nil target means
	// the candidate stands alone as its own canonical identity.
	SetMapping(ctx context.Context, id uuid.UUID, target *string) error

	// TransitionStatus performs a compare-and-set status transition. It fails
	// with apperrors.ErrStateConflict when the candidate's status is no
	// longer `from`, so a stale read can never silently overwrite a
	// concurrent moderation action.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ApprovalStatus, actor string, remarks *string) error

	// DistinctApprovedCanonicalNames returns the canonical names currently in
	// use among approved candidates, deduplicated case-insensitively.
	DistinctApprovedCanonicalNames(ctx context.Context) ([]string, error)

	// ApprovedCanonicalAliases returns moderator-curated alias pairs: for each
	// approved candidate mapped to a different canonical name, its validated
	// (or raw) name keyed lowercase to the mapping target.
	ApprovedCanonicalAliases(ctx context.Context) (map[string]string, error)
}

type candidateRepository struct {
	db *database.DB
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(db *database.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

var _ CandidateRepository = (*candidateRepository)(nil)

const candidateColumns = `id, document_id, name, value, unit, reference_range, method,
	validated_name, status, mapped_to, reviewed_by, reviewed_at, remarks, created_at`

func (r *candidateRepository) CreateBatch(ctx context.Context, candidates []*models.ParameterCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	query := `
		INSERT INTO parameter_candidates (
			id, document_id, name, value, unit, reference_range, method, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (document_id, name) DO NOTHING`

	batch := &pgx.Batch{}
	for _, c := range candidates {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.Status = models.ApprovalStatusPending
		batch.Queue(query,
			c.ID,
			c.DocumentID,
			c.Name,
			c.Value,
			c.Unit,
			c.ReferenceRange,
			c.Method,
			c.Status,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range candidates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create candidate %d: %w", i, err)
		}
	}

	return nil
}

func (r *candidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ParameterCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM parameter_candidates WHERE id = $1`

	c, err := scanCandidate(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}

	return c, nil
}

func (r *candidateRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*models.ParameterCandidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM parameter_candidates
		WHERE document_id = $1
		ORDER BY created_at, name`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates by document: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func (r *candidateRepository) ListByStatus(ctx context.Context, status models.ApprovalStatus, limit int) ([]*models.ParameterCandidate, error) {
	if limit <= 0 {
		limit = 1000
	}

	query := `SELECT ` + candidateColumns + `
		FROM parameter_candidates
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates by status: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func (r *candidateRepository) SetValidatedNames(ctx context.Context, documentID uuid.UUID, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}

	query := `
		UPDATE parameter_candidates
		SET validated_name = $3
		WHERE document_id = $1 AND name = $2`

	batch := &pgx.Batch{}
	for name, validated := range names {
		batch.Queue(query, documentID, name, validated)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range names {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to set validated name: %w", err)
		}
	}

	return nil
}

func (r *candidateRepository) SetMapping(ctx context.Context, id uuid.UUID, target *string) error {
	query := `UPDATE parameter_candidates SET mapped_to = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, target)
	if err != nil {
		return fmt.Errorf("failed to set mapping: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *candidateRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ApprovalStatus, actor string, remarks *string) error {
	query := `
		UPDATE parameter_candidates
		SET status = $3, reviewed_by = $4, reviewed_at = now(), remarks = $5
		WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to, actor, remarks)
	if err != nil {
		return fmt.Errorf("failed to transition candidate status: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrStateConflict
	}

	return nil
}

func (r *candidateRepository) DistinctApprovedCanonicalNames(ctx context.Context) ([]string, error) {
	// Canonical identity is mapped_to when set, else the validated name,
	// else the raw extracted name. One representative per case-insensitive
	// group keeps the mapping choices deduplicated.
	query := `
		SELECT min(canon)
		FROM (
			SELECT coalesce(nullif(mapped_to, ''), nullif(validated_name, ''), name) AS canon
			FROM parameter_candidates
			WHERE status = $1
		) c
		GROUP BY lower(canon)
		ORDER BY 1`

	rows, err := r.db.Query(ctx, query, models.ApprovalStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list canonical names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan canonical name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating canonical names: %w", err)
	}

	return names, nil
}

func (r *candidateRepository) ApprovedCanonicalAliases(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT DISTINCT lower(coalesce(nullif(validated_name, ''), name)) AS alias, mapped_to
		FROM parameter_candidates
		WHERE status = $1 AND mapped_to IS NOT NULL AND mapped_to <> ''`

	rows, err := r.db.Query(ctx, query, models.ApprovalStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list canonical aliases: %w", err)
	}
	defer rows.Close()

	aliases := make(map[string]string)
	for rows.Next() {
		var alias, target string
		if err := rows.Scan(&alias, &target); err != nil {
			return nil, fmt.Errorf("failed to scan canonical alias: %w", err)
		}
		aliases[alias] = target
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating canonical aliases: %w", err)
	}

	return aliases, nil
}

func scanCandidates(rows pgx.Rows) ([]*models.ParameterCandidate, error) {
	var candidates []*models.ParameterCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return candidates, nil
}

func scanCandidate(row pgx.Row) (*models.ParameterCandidate, error) {
	var c models.ParameterCandidate
	var unit, refRange, method *string

	err := row.Scan(
		&c.ID,
		&c.DocumentID,
		&c.Name,
		&c.Value,
		&unit,
		&refRange,
		&method,
		&c.ValidatedName,
		&c.Status,
		&c.MappedTo,
		&c.ReviewedBy,
		&c.ReviewedAt,
		&c.Remarks,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if unit != nil {
		c.Unit = *unit
	}
	if refRange != nil {
		c.ReferenceRange = *refRange
	}
	if method != nil {
		c.Method = *method
	}

	return &c, nil
}
