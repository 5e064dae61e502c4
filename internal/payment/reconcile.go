package payment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reelcraft/backend/internal/models"
)

// ReconcileStore is the durable queue of pending confirmation retries.
type ReconcileStore interface {
	Enqueue(ctx context.Context, job models.ReconcileJob) error
	Due(ctx context.Context, limit int) ([]models.ReconcileJob, error)
	MarkDone(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID, lastError string) error
}

// ReconcileWorkerConfig controls polling cadence and batch sizing.
type ReconcileWorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// ReconcileWorker drains the reconcile queue in the background, re-running
// purchase confirmations that failed after a completed charge. Jobs that fail
// again stay queued with a bumped attempt count for the next pass.
type ReconcileWorker struct {
	store     ReconcileStore
	confirmer Confirmer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewReconcileWorker starts a background worker over the reconcile queue.
func NewReconcileWorker(store ReconcileStore, confirmer Confirmer, cfg ReconcileWorkerConfig, logger *slog.Logger) *ReconcileWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &ReconcileWorker{
		store:     store,
		confirmer: confirmer,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		ctx:       ctx,
		cancel:    cancel,
	}

	w.wg.Add(1)
	go w.loop()

	return w
}

// Shutdown stops the worker and waits for the in-flight pass to finish.
func (w *ReconcileWorker) Shutdown(ctx context.Context) error {
	w.once.Do(w.cancel)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (w *ReconcileWorker) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(w.ctx)
		}
	}
}

// RunOnce processes a single batch of due jobs. Exposed so tests and the
// shutdown path can drain without waiting on the ticker.
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	jobs, err := w.store.Due(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("fetch reconcile jobs", "error", err)
		return
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.handle(ctx, job)
	}
}

func (w *ReconcileWorker) handle(ctx context.Context, job models.ReconcileJob) {
	params := ConfirmParams{
		UserID:           job.UserID,
		Kind:             job.Kind,
		PlanID:           job.PlanID,
		AddonID:          job.AddonID,
		Amount:           job.Amount,
		PaymentRequestID: job.PaymentRequestID,
	}

	if err := w.confirmer.Confirm(ctx, params); err != nil {
		w.logger.Warn("reconcile confirmation failed",
			"jobId", job.ID,
			"paymentRequestId", job.PaymentRequestID,
			"attempts", job.Attempts+1,
			"error", err,
		)
		if merr := w.store.MarkFailed(ctx, job.ID, err.Error()); merr != nil {
			w.logger.Error("mark reconcile job failed", "jobId", job.ID, "error", merr)
		}
		return
	}

	if err := w.store.MarkDone(ctx, job.ID); err != nil {
		w.logger.Error("mark reconcile job done", "jobId", job.ID, "error", err)
		return
	}

	w.logger.Info("reconciled purchase confirmation",
		"jobId", job.ID, "paymentRequestId", job.PaymentRequestID)
}
