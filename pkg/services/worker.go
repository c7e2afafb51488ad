package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/config"
	"github.com/medscan-io/report-engine/pkg/repositories"
)

// WorkerPool drives the document pipeline. Each worker loops claiming the
// oldest claimable document, runs the pipeline on it, and idles on the poll
// interval when the queue is empty. The documents table is the queue; leases
// keep crashed runs from losing work and the attempt counter keeps poison
// documents from looping forever.
type WorkerPool struct {
	documents repositories.DocumentRepository
	pipeline  PipelineService
	cfg       config.PipelineConfig
	logger    *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorkerPool creates a new WorkerPool.
func NewWorkerPool(documents repositories.DocumentRepository, pipeline PipelineService, cfg config.PipelineConfig, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		documents: documents,
		pipeline:  pipeline,
		cfg:       cfg,
		logger:    logger.Named("worker"),
	}
}

// Start launches the configured number of workers. They run until Stop is
// called or the parent context is canceled.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.logger.Info("starting pipeline workers",
		zap.Int("workers", p.cfg.Workers),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Duration("lease_timeout", p.cfg.LeaseTimeout))

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop signals all workers and waits for in-flight documents to finish.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("pipeline workers stopped")
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := p.tick(ctx, logger)
		if err != nil {
			logger.Error("worker tick failed", zap.Error(err))
		}
		if claimed && err == nil {
			// Something was in the queue; check again immediately.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// tick claims and processes at most one document. It reports whether a
// document was claimed so the caller can skip the idle wait on a busy queue.
func (p *WorkerPool) tick(ctx context.Context, logger *zap.Logger) (bool, error) {
	doc, err := p.documents.ClaimNext(ctx, p.cfg.LeaseTimeout)
	if err != nil {
		return false, fmt.Errorf("failed to claim document: %w", err)
	}
	if doc == nil {
		return false, nil
	}

	if doc.Attempts > p.cfg.MaxAttempts {
		logger.Warn("document exceeded max attempts",
			zap.String("document_id", doc.ID.String()),
			zap.Int("attempts", doc.Attempts))
		reason := fmt.Sprintf("gave up after %d processing attempts", doc.Attempts-1)
		if err := p.documents.MarkFailed(ctx, doc.ID, reason); err != nil {
			return true, fmt.Errorf("failed to mark exhausted document: %w", err)
		}
		return true, nil
	}

	if err := p.pipeline.Process(ctx, doc); err != nil {
		// Left processing on purpose: the lease expiry requeues it for
		// another attempt.
		logger.Error("pipeline run failed",
			zap.String("document_id", doc.ID.String()),
			zap.Int("attempt", doc.Attempts),
			zap.Error(err))
	}

	return true, nil
}
