package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/repositories"
)

// ConfirmParams identifies one completed charge to be recorded.
type ConfirmParams struct {
	UserID           string
	Kind             models.PurchaseKind
	PlanID           string
	AddonID          string
	Amount           float64
	PaymentRequestID string
}

// PurchaseStore persists confirmed purchases. Implementations must apply the
// purchase row and its coin grant atomically and report ErrConflict when the
// payment request id was already recorded.
type PurchaseStore interface {
	RecordPurchase(ctx context.Context, purchase models.Purchase) error
}

// Grants maps plan and addon identifiers to the coin amounts they carry.
type Grants struct {
	Plans  map[string]int64
	Addons map[string]int64
}

// DefaultGrants mirrors the published plan and coin-pack catalog.
func DefaultGrants() Grants {
	return Grants{
		Plans: map[string]int64{
			"plan_basic": 300,
			"plan_pro":   800,
			"plan_max":   2000,
		},
		Addons: map[string]int64{
			"coins_100":  100,
			"coins_500":  500,
			"coins_1200": 1200,
		},
	}
}

// ConfirmService records subscription and addon purchases and credits the
// coins they grant. Recording is idempotent on the gateway payment request
// id, so a reconcile retry cannot double-grant.
type ConfirmService struct {
	purchases PurchaseStore
	grants    Grants
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// NewConfirmService wires a confirmation service over the given store.
func NewConfirmService(purchases PurchaseStore, grants Grants, logger *slog.Logger) *ConfirmService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmService{
		purchases: purchases,
		grants:    grants,
		logger:    logger,
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (s *ConfirmService) WithNowFunc(now func() time.Time) *ConfirmService {
	s.nowFunc = now
	return s
}

// Confirm records the purchase together with its coin grant.
func (s *ConfirmService) Confirm(ctx context.Context, params ConfirmParams) error {
	if params.UserID == "" || params.PaymentRequestID == "" {
		return errors.New("confirm purchase: user id and payment request id are required")
	}

	purchase := models.Purchase{
		ID:               uuid.NewString(),
		UserID:           params.UserID,
		Kind:             params.Kind,
		PlanID:           params.PlanID,
		AddonID:          params.AddonID,
		Amount:           params.Amount,
		PaymentRequestID: params.PaymentRequestID,
		CoinsGranted:     s.coinsFor(params),
		CreatedAt:        s.nowFunc(),
	}

	if err := s.purchases.RecordPurchase(ctx, purchase); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			s.logger.Info("purchase already recorded", "paymentRequestId", params.PaymentRequestID)
			return nil
		}
		return fmt.Errorf("record purchase: %w", err)
	}

	return nil
}

func (s *ConfirmService) coinsFor(params ConfirmParams) int64 {
	switch params.Kind {
	case models.PurchaseKindSubscription:
		return s.grants.Plans[params.PlanID]
	case models.PurchaseKindAddon:
		return s.grants.Addons[params.AddonID]
	default:
		return 0
	}
}
