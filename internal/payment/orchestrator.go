package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelcraft/backend/internal/gateway"
	"github.com/reelcraft/backend/internal/logging"
	"github.com/reelcraft/backend/internal/models"
)

// Gateway is the slice of the payment gateway client the orchestrator needs.
type Gateway interface {
	CreatePayment(ctx context.Context, params gateway.CreatePaymentParams) (string, error)
	ProcessCardPayment(ctx context.Context, paymentRequestID string, card gateway.Card) (gateway.PaymentState, error)
	ProcessWalletPayment(ctx context.Context, paymentRequestID, walletType string) (string, error)
	GetPaymentStatus(ctx context.Context, paymentRequestID string) (gateway.PaymentState, error)
}

// Confirmer records a completed charge against the backend.
type Confirmer interface {
	Confirm(ctx context.Context, params ConfirmParams) error
}

// ReconcileEnqueuer accepts durable retry jobs for failed confirmations.
type ReconcileEnqueuer interface {
	Enqueue(ctx context.Context, job models.ReconcileJob) error
}

// PaymentRecorder keeps the local mirror of gateway payment requests.
// Recording is best-effort: a write failure is logged, never fatal to a flow.
type PaymentRecorder interface {
	InsertPayment(ctx context.Context, record models.PaymentRecord) error
	UpdatePaymentStatus(ctx context.Context, paymentRequestID string, status models.PaymentStatus, resultCode string) error
}

// Outcome summarizes how a card flow ended for the caller.
type Outcome string

const (
	// OutcomeSucceeded means the charge completed and the purchase is recorded.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeProcessing means the gateway still reports pending; the purchase
	// will be settled out of band. Terminal for this flow.
	OutcomeProcessing Outcome = "processing"
	// OutcomeConfirmQueued means the charge completed but recording it failed;
	// a reconcile job has been queued and will retry the confirmation.
	OutcomeConfirmQueued Outcome = "confirm_queued"
)

// Intent describes what the user is buying. Exactly one of PlanID or AddonID
// is expected to be set; Amount is the raw display price string.
type Intent struct {
	UserID  string
	PlanID  string
	AddonID string
	Amount  string
}

func (i Intent) kind() models.PurchaseKind {
	if i.AddonID != "" {
		return models.PurchaseKindAddon
	}
	return models.PurchaseKindSubscription
}

// Result is the terminal state of one card flow.
type Result struct {
	Outcome          Outcome
	PaymentRequestID string
}

// FlowError is a card-flow failure carrying the gateway result code when the
// server supplied one.
type FlowError struct {
	Stage      string
	ResultCode string
	Err        error
}

func (e *FlowError) Error() string {
	if e.ResultCode != "" {
		return fmt.Sprintf("payment %s failed: %s", e.Stage, e.ResultCode)
	}
	return fmt.Sprintf("payment %s failed: %v", e.Stage, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Orchestrator drives the multi-step card and wallet payment flows:
// create the payment request, submit the instrument, poll the gateway for a
// terminal status, then confirm the purchase against the backend.
type Orchestrator struct {
	gateway   Gateway
	confirmer Confirmer
	reconcile ReconcileEnqueuer
	records   PaymentRecorder
	logger    *slog.Logger

	currency       string
	statusAttempts int
	statusInterval time.Duration
	nowFunc        func() time.Time
	sleepFunc      func(ctx context.Context, d time.Duration) error
}

// OrchestratorConfig tunes a payment orchestrator.
type OrchestratorConfig struct {
	Currency       string
	StatusAttempts int
	StatusInterval time.Duration
}

// NewOrchestrator wires the payment flow over its collaborators.
func NewOrchestrator(gw Gateway, confirmer Confirmer, reconcile ReconcileEnqueuer, records PaymentRecorder, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.StatusAttempts <= 0 {
		cfg.StatusAttempts = 1
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:        gw,
		confirmer:      confirmer,
		reconcile:      reconcile,
		records:        records,
		logger:         logger,
		currency:       cfg.Currency,
		statusAttempts: cfg.StatusAttempts,
		statusInterval: cfg.StatusInterval,
		nowFunc:        func() time.Time { return time.Now().UTC() },
		sleepFunc:      sleepCtx,
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (o *Orchestrator) WithNowFunc(now func() time.Time) *Orchestrator {
	o.nowFunc = now
	return o
}

// WithSleepFunc overrides the inter-poll wait. Useful for tests.
func (o *Orchestrator) WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) *Orchestrator {
	o.sleepFunc = sleep
	return o
}

// PayWithCard runs the full card flow. Validation failures surface before any
// network call.
func (o *Orchestrator) PayWithCard(ctx context.Context, intent Intent, card gateway.Card) (Result, error) {
	ctx, span := logging.StartSpan(ctx, "payment.card_flow")
	defer span.End()

	if err := ValidateCard(card, o.nowFunc); err != nil {
		return Result{}, &FlowError{Stage: "validation", Err: err}
	}

	amount, err := ParseAmount(intent.Amount)
	if err != nil {
		return Result{}, &FlowError{Stage: "validation", Err: err}
	}

	requestID, err := o.createPayment(ctx, intent, amount, models.PaymentMethodCard)
	if err != nil {
		return Result{}, &FlowError{Stage: "create", Err: err}
	}

	state, err := o.gateway.ProcessCardPayment(ctx, requestID, card)
	if err != nil {
		o.recordStatus(ctx, requestID, models.PaymentStatusFailed, "")
		return Result{}, &FlowError{Stage: "processing", Err: err}
	}

	return o.settle(ctx, intent, amount, requestID, state)
}

// PayWithWallet opens a wallet payment and returns the hosted page the user
// must be redirected to. Completion happens out of band and is not observed
// by this flow.
func (o *Orchestrator) PayWithWallet(ctx context.Context, intent Intent, walletType string) (string, error) {
	ctx, span := logging.StartSpan(ctx, "payment.wallet_flow")
	defer span.End()

	if strings.TrimSpace(walletType) == "" {
		return "", &FlowError{Stage: "validation", Err: fmt.Errorf("wallet type is required")}
	}

	amount, err := ParseAmount(intent.Amount)
	if err != nil {
		return "", &FlowError{Stage: "validation", Err: err}
	}

	requestID, err := o.createPayment(ctx, intent, amount, models.PaymentMethodWallet)
	if err != nil {
		return "", &FlowError{Stage: "create", Err: err}
	}

	redirectURL, err := o.gateway.ProcessWalletPayment(ctx, requestID, walletType)
	if err != nil {
		o.recordStatus(ctx, requestID, models.PaymentStatusFailed, "")
		return "", &FlowError{Stage: "processing", Err: err}
	}

	return redirectURL, nil
}

func (o *Orchestrator) createPayment(ctx context.Context, intent Intent, amount float64, method models.PaymentMethod) (string, error) {
	requestID, err := o.gateway.CreatePayment(ctx, gateway.CreatePaymentParams{
		Amount:     amount,
		Currency:   o.currency,
		MethodType: string(method),
		PlanID:     intent.PlanID,
		AddonID:    intent.AddonID,
	})
	if err != nil {
		return "", err
	}

	if o.records != nil {
		now := o.nowFunc()
		record := models.PaymentRecord{
			ID:               uuid.NewString(),
			UserID:           intent.UserID,
			PaymentRequestID: requestID,
			Amount:           amount,
			Currency:         o.currency,
			Method:           method,
			Status:           models.PaymentStatusPending,
			PlanID:           intent.PlanID,
			AddonID:          intent.AddonID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := o.records.InsertPayment(ctx, record); err != nil {
			o.logger.Error("record payment", "paymentRequestId", requestID, "error", err)
		}
	}

	return requestID, nil
}

// settle polls the gateway until a terminal status or the attempt budget runs
// out, then confirms completed charges.
func (o *Orchestrator) settle(ctx context.Context, intent Intent, amount float64, requestID string, state gateway.PaymentState) (Result, error) {
	status := strings.ToLower(state.Status)
	resultCode := state.ResultCode

	for attempt := 0; status == "pending" && attempt < o.statusAttempts; attempt++ {
		if attempt > 0 {
			if err := o.sleepFunc(ctx, o.statusInterval); err != nil {
				return Result{}, &FlowError{Stage: "status", Err: err}
			}
		}

		polled, err := o.gateway.GetPaymentStatus(ctx, requestID)
		if err != nil {
			return Result{}, &FlowError{Stage: "status", Err: err}
		}
		status = strings.ToLower(polled.Status)
		resultCode = polled.ResultCode
	}

	switch status {
	case "completed":
		o.recordStatus(ctx, requestID, models.PaymentStatusCompleted, resultCode)
		return o.confirm(ctx, intent, amount, requestID)
	case "pending":
		// The gateway will settle this out of band; terminal for the flow.
		o.logger.Info("payment still pending after status polls", "paymentRequestId", requestID)
		return Result{Outcome: OutcomeProcessing, PaymentRequestID: requestID}, nil
	default:
		o.recordStatus(ctx, requestID, models.PaymentStatusFailed, resultCode)
		return Result{}, &FlowError{Stage: "status", ResultCode: resultCode, Err: fmt.Errorf("gateway reported status %q", status)}
	}
}

// confirm records the purchase. The charge has already completed here, so a
// confirmation failure must never be dropped: it becomes a durable reconcile
// job retried in the background.
func (o *Orchestrator) confirm(ctx context.Context, intent Intent, amount float64, requestID string) (Result, error) {
	params := ConfirmParams{
		UserID:           intent.UserID,
		Kind:             intent.kind(),
		PlanID:           intent.PlanID,
		AddonID:          intent.AddonID,
		Amount:           amount,
		PaymentRequestID: requestID,
	}

	if err := o.confirmer.Confirm(ctx, params); err != nil {
		o.logger.Error("purchase confirmation failed after completed charge",
			"paymentRequestId", requestID, "error", err)

		now := o.nowFunc()
		job := models.ReconcileJob{
			ID:               uuid.NewString(),
			UserID:           intent.UserID,
			Kind:             params.Kind,
			PlanID:           intent.PlanID,
			AddonID:          intent.AddonID,
			Amount:           amount,
			PaymentRequestID: requestID,
			LastError:        err.Error(),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if qerr := o.reconcile.Enqueue(ctx, job); qerr != nil {
			// Both the confirmation and the queue failed; surface the
			// inconsistency instead of pretending success.
			return Result{}, &FlowError{Stage: "confirmation", Err: fmt.Errorf("confirm: %v; enqueue reconcile: %w", err, qerr)}
		}
		return Result{Outcome: OutcomeConfirmQueued, PaymentRequestID: requestID}, nil
	}

	return Result{Outcome: OutcomeSucceeded, PaymentRequestID: requestID}, nil
}

func (o *Orchestrator) recordStatus(ctx context.Context, requestID string, status models.PaymentStatus, resultCode string) {
	if o.records == nil {
		return
	}
	if err := o.records.UpdatePaymentStatus(ctx, requestID, status, resultCode); err != nil {
		o.logger.Error("update payment status", "paymentRequestId", requestID, "error", err)
	}
}
