package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medscan-io/report-engine/pkg/apperrors"
	"github.com/medscan-io/report-engine/pkg/database"
	"github.com/medscan-io/report-engine/pkg/models"
)

// DocumentRepository provides data access for uploaded documents. The
// documents table doubles as the durable work queue: ClaimNext hands out
// leases so each document has at most one in-flight processing attempt.
type DocumentRepository interface {
	// Create inserts a new document in queued state.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID returns a single document, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)

	// ClaimNext atomically claims the oldest claimable document: one that is
	// queued, or processing with an expired lease. It marks the document
	// processing, bumps its attempt counter, and takes a lease until
	// now+lease. Returns nil when nothing is claimable.
	ClaimNext(ctx context.Context, lease time.Duration) (*models.Document, error)

	// MarkCompleted finishes a run successfully and releases the lease.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// MarkFailed records a terminal failure with a human-readable reason.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// Requeue resets a document to queued for reprocessing. Fails with
	// apperrors.ErrDocumentLeased when a worker currently holds the lease.
	Requeue(ctx context.Context, id uuid.UUID) error
}

type documentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *database.DB) DocumentRepository {
	return &documentRepository{db: db}
}

var _ DocumentRepository = (*documentRepository)(nil)

const documentColumns = `id, client_id, storage_key, format, raw_text, status,
	failure_reason, attempts, leased_until, uploaded_at, processed_at`

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.Status = models.DocumentStatusQueued

	query := `
		INSERT INTO documents (id, client_id, storage_key, format, raw_text, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING uploaded_at`

	err := r.db.QueryRow(ctx, query,
		doc.ID,
		doc.ClientID,
		doc.StorageKey,
		doc.Format,
		doc.RawText,
		doc.Status,
	).Scan(&doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

func (r *documentRepository) ClaimNext(ctx context.Context, lease time.Duration) (*models.Document, error) {
	query := `
		UPDATE documents
		SET status = $1, leased_until = now() + $2, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM documents
			WHERE status = $3
			   OR (status = $1 AND leased_until < now())
			ORDER BY uploaded_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + documentColumns

	doc, err := scanDocument(r.db.QueryRow(ctx, query,
		models.DocumentStatusProcessing,
		lease,
		models.DocumentStatusQueued,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim document: %w", err)
	}

	return doc, nil
}

func (r *documentRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE documents
		SET status = $2, failure_reason = NULL, leased_until = NULL, processed_at = now()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, models.DocumentStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *documentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE documents
		SET status = $2, failure_reason = $3, leased_until = NULL, processed_at = now()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, models.DocumentStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *documentRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	// A document may be requeued from any state except mid-lease: a leased
	// document belongs to its worker until the lease expires.
	query := `
		UPDATE documents
		SET status = $2, failure_reason = NULL, attempts = 0,
		    leased_until = NULL, processed_at = NULL
		WHERE id = $1
		  AND NOT (status = $3 AND leased_until >= now())`

	result, err := r.db.Exec(ctx, query, id,
		models.DocumentStatusQueued,
		models.DocumentStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to requeue document: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrDocumentLeased
	}

	return nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID,
		&d.ClientID,
		&d.StorageKey,
		&d.Format,
		&d.RawText,
		&d.Status,
		&d.FailureReason,
		&d.Attempts,
		&d.LeasedUntil,
		&d.UploadedAt,
		&d.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
