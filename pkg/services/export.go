package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/models"
)

// DocumentStore is the downstream flexible store approved parameter
// projections are exported to. Implementations receive only the
// ApprovedParameter projection, never the full candidate row.
type DocumentStore interface {
	// Put writes one approved parameter projection keyed by candidate ID.
	Put(ctx context.Context, candidateID uuid.UUID, param models.ApprovedParameter) error

	// Remove deletes a previously exported projection. Removing an absent
	// key is not an error.
	Remove(ctx context.Context, candidateID uuid.UUID) error
}

type redisDocumentStore struct {
	client *redis.Client
}

// NewRedisDocumentStore wraps a Redis client as a DocumentStore. A nil client
// disables export: both operations become no-ops, so the moderation workflow
// works unchanged in deployments without a document store.
func NewRedisDocumentStore(client *redis.Client) DocumentStore {
	if client == nil {
		return noopDocumentStore{}
	}
	return &redisDocumentStore{client: client}
}

func exportKey(candidateID uuid.UUID) string {
	return "parameter:" + candidateID.String()
}

func (s *redisDocumentStore) Put(ctx context.Context, candidateID uuid.UUID, param models.ApprovedParameter) error {
	payload, err := json.Marshal(param)
	if err != nil {
		return fmt.Errorf("failed to marshal parameter projection: %w", err)
	}

	if err := s.client.Set(ctx, exportKey(candidateID), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to export parameter: %w", err)
	}

	return nil
}

func (s *redisDocumentStore) Remove(ctx context.Context, candidateID uuid.UUID) error {
	if err := s.client.Del(ctx, exportKey(candidateID)).Err(); err != nil {
		return fmt.Errorf("failed to remove exported parameter: %w", err)
	}
	return nil
}

type noopDocumentStore struct{}

func (noopDocumentStore) Put(context.Context, uuid.UUID, models.ApprovedParameter) error { return nil }
func (noopDocumentStore) Remove(context.Context, uuid.UUID) error                        { return nil }

// ExportService pushes approved parameter projections to the document store
// and withdraws them when approval is revoked.
type ExportService interface {
	// ExportApproved writes the candidate's projection to the document store.
	ExportApproved(ctx context.Context, candidate *models.ParameterCandidate) error

	// Withdraw removes the candidate's projection from the document store.
	Withdraw(ctx context.Context, candidateID uuid.UUID) error
}

type exportService struct {
	store  DocumentStore
	logger *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(store DocumentStore, logger *zap.Logger) ExportService {
	return &exportService{
		store:  store,
		logger: logger.Named("export"),
	}
}

func (s *exportService) ExportApproved(ctx context.Context, candidate *models.ParameterCandidate) error {
	if err := s.store.Put(ctx, candidate.ID, candidate.ExportProjection()); err != nil {
		return err
	}

	s.logger.Info("parameter exported",
		zap.String("candidate_id", candidate.ID.String()),
		zap.String("canonical_name", candidate.CanonicalName()))
	return nil
}

func (s *exportService) Withdraw(ctx context.Context, candidateID uuid.UUID) error {
	if err := s.store.Remove(ctx, candidateID); err != nil {
		return err
	}

	s.logger.Info("parameter export withdrawn",
		zap.String("candidate_id", candidateID.String()))
	return nil
}
