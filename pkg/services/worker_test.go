package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/config"
	"github.com/medscan-io/report-engine/pkg/models"
)

// recordingPipeline stands in for the real pipeline and marks every document
// completed so the queue drains.
type recordingPipeline struct {
	mu        sync.Mutex
	processed []uuid.UUID
	docs      *fakeDocumentRepo
}

func (p *recordingPipeline) Process(ctx context.Context, doc *models.Document) error {
	p.mu.Lock()
	p.processed = append(p.processed, doc.ID)
	p.mu.Unlock()
	return p.docs.MarkCompleted(ctx, doc.ID)
}

func (p *recordingPipeline) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

func workerConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Workers:      2,
		PollInterval: 5 * time.Millisecond,
		LeaseTimeout: time.Minute,
		MaxAttempts:  3,
	}
}

func TestWorkerPoolDrainsQueue(t *testing.T) {
	docs := newFakeDocumentRepo()
	pipeline := &recordingPipeline{docs: docs}

	for i := 0; i < 5; i++ {
		require.NoError(t, docs.Create(context.Background(), &models.Document{
			ClientID:   uuid.New(),
			StorageKey: "reports/r.pdf",
			RawText:    "Hemoglobin : 13.2 g/dL",
		}))
	}

	pool := NewWorkerPool(docs, pipeline, workerConfig(), zap.NewNop())
	pool.Start(context.Background())

	require.Eventually(t, func() bool {
		return pipeline.count() == 5
	}, 2*time.Second, 5*time.Millisecond)

	pool.Stop()
	assert.Equal(t, 5, pipeline.count(), "no document may be processed twice")
}

func TestWorkerPoolStopsOnContextCancel(t *testing.T) {
	docs := newFakeDocumentRepo()
	pipeline := &recordingPipeline{docs: docs}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(docs, pipeline, workerConfig(), zap.NewNop())
	pool.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker pool did not stop after context cancellation")
	}
}

func TestWorkerPoolFailsExhaustedDocument(t *testing.T) {
	docs := newFakeDocumentRepo()

	doc := &models.Document{
		ClientID:   uuid.New(),
		StorageKey: "reports/poison.pdf",
		RawText:    "garbled",
	}
	require.NoError(t, docs.Create(context.Background(), doc))
	// Simulate earlier crashed runs that burned the attempt budget.
	docs.mu.Lock()
	docs.docs[doc.ID].Attempts = 3
	docs.mu.Unlock()

	pipeline := &recordingPipeline{docs: docs}
	pool := NewWorkerPool(docs, pipeline, workerConfig(), zap.NewNop())

	claimed, err := pool.tick(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.True(t, claimed)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Contains(t, *stored.FailureReason, "attempts")
	assert.Equal(t, 0, pipeline.count(), "exhausted documents never reach the pipeline")
}

func TestWorkerTickIdleQueue(t *testing.T) {
	docs := newFakeDocumentRepo()
	pipeline := &recordingPipeline{docs: docs}
	pool := NewWorkerPool(docs, pipeline, workerConfig(), zap.NewNop())

	claimed, err := pool.tick(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, claimed)
}
