package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haimph/transfer-approval-api/internal/models"
	"github.com/haimph/transfer-approval-api/pkg/jobs"
)

// AuditTrail persists audit rows off the request path through a background
// queue, so a slow audit insert never delays a workflow response. It satisfies
// the same CreateAuditLog contract as the repository and can replace it
// wherever audit rows are written.
type AuditTrail struct {
	sink   auditLogger
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditTrail builds the trail around the given sink, usually the user
// repository.
func NewAuditTrail(sink auditLogger, cfg jobs.QueueConfig, logger *zap.Logger) *AuditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	trail := &AuditTrail{sink: sink, logger: logger}
	trail.queue = jobs.NewQueue("audit", trail.handle, cfg)
	return trail
}

// Start launches the queue workers.
func (t *AuditTrail) Start(ctx context.Context) {
	t.queue.Start(ctx)
}

// Stop drains the workers.
func (t *AuditTrail) Stop() {
	t.queue.Stop()
}

// CreateAuditLog enqueues the row for background persistence. The request
// context is intentionally not carried; the write outlives the request.
func (t *AuditTrail) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if err := t.queue.Enqueue(jobs.Job{ID: log.ID, Type: log.Action, Payload: log}); err != nil {
		return fmt.Errorf("enqueue audit log: %w", err)
	}
	return nil
}

func (t *AuditTrail) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		t.logger.Error("audit job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return t.sink.CreateAuditLog(ctx, log)
}
