package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medscan-io/report-engine/pkg/apperrors"
	"github.com/medscan-io/report-engine/pkg/models"
	"github.com/medscan-io/report-engine/pkg/repositories"
)

// fakeDocumentRepo is an in-memory DocumentRepository that mirrors the SQL
// claiming semantics closely enough to exercise the worker and pipeline.
type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document

	failMarkCompleted error
	failMarkFailed    error
}

var _ repositories.DocumentRepository = (*fakeDocumentRepo)(nil)

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[uuid.UUID]*models.Document)}
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.Status = models.DocumentStatusQueued
	doc.UploadedAt = time.Now()
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocumentRepo) ClaimNext(_ context.Context, lease time.Duration) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var oldest *models.Document
	for _, doc := range r.docs {
		claimable := doc.Status == models.DocumentStatusQueued ||
			(doc.Status == models.DocumentStatusProcessing && doc.LeasedUntil != nil && doc.LeasedUntil.Before(now))
		if !claimable {
			continue
		}
		if oldest == nil || doc.UploadedAt.Before(oldest.UploadedAt) {
			oldest = doc
		}
	}
	if oldest == nil {
		return nil, nil
	}

	oldest.Status = models.DocumentStatusProcessing
	until := now.Add(lease)
	oldest.LeasedUntil = &until
	oldest.Attempts++

	copied := *oldest
	return &copied, nil
}

func (r *fakeDocumentRepo) MarkCompleted(_ context.Context, id uuid.UUID) error {
	if r.failMarkCompleted != nil {
		return r.failMarkCompleted
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	doc.Status = models.DocumentStatusCompleted
	doc.FailureReason = nil
	doc.LeasedUntil = nil
	doc.ProcessedAt = &now
	return nil
}

func (r *fakeDocumentRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	if r.failMarkFailed != nil {
		return r.failMarkFailed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	doc.Status = models.DocumentStatusFailed
	doc.FailureReason = &reason
	doc.LeasedUntil = nil
	doc.ProcessedAt = &now
	return nil
}

func (r *fakeDocumentRepo) Requeue(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if doc.Leased(time.Now()) {
		return apperrors.ErrDocumentLeased
	}
	doc.Status = models.DocumentStatusQueued
	doc.FailureReason = nil
	doc.Attempts = 0
	doc.LeasedUntil = nil
	doc.ProcessedAt = nil
	return nil
}

// fakeCandidateRepo is an in-memory CandidateRepository.
type fakeCandidateRepo struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]*models.ParameterCandidate
}

var _ repositories.CandidateRepository = (*fakeCandidateRepo)(nil)

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{candidates: make(map[uuid.UUID]*models.ParameterCandidate)}
}

func (r *fakeCandidateRepo) CreateBatch(_ context.Context, candidates []*models.ParameterCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range candidates {
		if r.findByDocAndName(c.DocumentID, c.Name) != nil {
			continue
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.Status = models.ApprovalStatusPending
		c.CreatedAt = time.Now()
		copied := *c
		r.candidates[c.ID] = &copied
	}
	return nil
}

func (r *fakeCandidateRepo) findByDocAndName(documentID uuid.UUID, name string) *models.ParameterCandidate {
	for _, c := range r.candidates {
		if c.DocumentID == documentID && c.Name == name {
			return c
		}
	}
	return nil
}

func (r *fakeCandidateRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ParameterCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCandidateRepo) ListByDocument(_ context.Context, documentID uuid.UUID) ([]*models.ParameterCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ParameterCandidate
	for _, c := range r.candidates {
		if c.DocumentID == documentID {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCandidateRepo) ListByStatus(_ context.Context, status models.ApprovalStatus, _ int) ([]*models.ParameterCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ParameterCandidate
	for _, c := range r.candidates {
		if c.Status == status {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCandidateRepo) SetValidatedNames(_ context.Context, documentID uuid.UUID, names map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, validated := range names {
		if c := r.findByDocAndName(documentID, name); c != nil {
			v := validated
			c.ValidatedName = &v
		}
	}
	return nil
}

func (r *fakeCandidateRepo) SetMapping(_ context.Context, id uuid.UUID, target *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.MappedTo = target
	return nil
}

func (r *fakeCandidateRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.ApprovalStatus, actor string, remarks *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if c.Status != from {
		return apperrors.ErrStateConflict
	}
	now := time.Now()
	c.Status = to
	c.ReviewedBy = &actor
	c.ReviewedAt = &now
	c.Remarks = remarks
	return nil
}

func (r *fakeCandidateRepo) DistinctApprovedCanonicalNames(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]string)
	for _, c := range r.candidates {
		if c.Status != models.ApprovalStatusApproved {
			continue
		}
		canon := c.CanonicalName()
		key := strings.ToLower(canon)
		if existing, ok := seen[key]; !ok || canon < existing {
			seen[key] = canon
		}
	}
	names := make([]string, 0, len(seen))
	for _, canon := range seen {
		names = append(names, canon)
	}
	sort.Strings(names)
	return names, nil
}

func (r *fakeCandidateRepo) ApprovedCanonicalAliases(_ context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	aliases := make(map[string]string)
	for _, c := range r.candidates {
		if c.Status != models.ApprovalStatusApproved || c.MappedTo == nil || *c.MappedTo == "" {
			continue
		}
		alias := c.Name
		if c.ValidatedName != nil && *c.ValidatedName != "" {
			alias = *c.ValidatedName
		}
		aliases[strings.ToLower(alias)] = *c.MappedTo
	}
	return aliases, nil
}

// seed inserts a candidate directly, bypassing CreateBatch's pending reset.
func (r *fakeCandidateRepo) seed(c *models.ParameterCandidate) *models.ParameterCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.ApprovalStatusPending
	}
	c.CreatedAt = time.Now()
	copied := *c
	r.candidates[c.ID] = &copied
	return &copied
}

// fakeDocumentStore records exported projections in memory.
type fakeDocumentStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.ApprovedParameter
	putErr  error
}

var _ DocumentStore = (*fakeDocumentStore)(nil)

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{entries: make(map[uuid.UUID]models.ApprovedParameter)}
}

func (s *fakeDocumentStore) Put(_ context.Context, candidateID uuid.UUID, param models.ApprovedParameter) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[candidateID] = param
	return nil
}

func (s *fakeDocumentStore) Remove(_ context.Context, candidateID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, candidateID)
	return nil
}

func (s *fakeDocumentStore) get(candidateID uuid.UUID) (models.ApprovedParameter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	param, ok := s.entries[candidateID]
	return param, ok
}

func strPtr(s string) *string { return &s }
