package repositories

import (
	"context"

	"github.com/reelcraft/backend/internal/models"
)

// PaymentRepository keeps the local mirror of gateway payment requests.
type PaymentRepository interface {
	InsertPayment(ctx context.Context, record models.PaymentRecord) error
	UpdatePaymentStatus(ctx context.Context, paymentRequestID string, status models.PaymentStatus, resultCode string) error
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.PaymentRecord, error)
}

// PurchaseRepository persists confirmed purchases together with their coin
// grants.
type PurchaseRepository interface {
	RecordPurchase(ctx context.Context, purchase models.Purchase) error
}

// ReconcileQueue is the durable queue of confirmation retries.
type ReconcileQueue interface {
	Enqueue(ctx context.Context, job models.ReconcileJob) error
	Due(ctx context.Context, limit int) ([]models.ReconcileJob, error)
	MarkDone(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID, lastError string) error
}
