package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelcraft/backend/internal/gateway"
	"github.com/reelcraft/backend/internal/models"
)

type fakeGateway struct {
	createParams gateway.CreatePaymentParams
	createErr    error
	processCard  gateway.Card
	processID    string
	processState gateway.PaymentState
	processErr   error
	statusStates []gateway.PaymentState
	statusCalls  int
	createCalls  int
	walletType   string
	walletURL    string
	walletErr    error
}

func (f *fakeGateway) CreatePayment(ctx context.Context, params gateway.CreatePaymentParams) (string, error) {
	f.createCalls++
	f.createParams = params
	if f.createErr != nil {
		return "", f.createErr
	}
	return "pr-42", nil
}

func (f *fakeGateway) ProcessCardPayment(ctx context.Context, paymentRequestID string, card gateway.Card) (gateway.PaymentState, error) {
	f.processID = paymentRequestID
	f.processCard = card
	return f.processState, f.processErr
}

func (f *fakeGateway) ProcessWalletPayment(ctx context.Context, paymentRequestID, walletType string) (string, error) {
	f.walletType = walletType
	if f.walletErr != nil {
		return "", f.walletErr
	}
	return f.walletURL, nil
}

func (f *fakeGateway) GetPaymentStatus(ctx context.Context, paymentRequestID string) (gateway.PaymentState, error) {
	if f.statusCalls >= len(f.statusStates) {
		return gateway.PaymentState{Status: "pending"}, nil
	}
	state := f.statusStates[f.statusCalls]
	f.statusCalls++
	return state, nil
}

type fakeConfirmer struct {
	params ConfirmParams
	calls  int
	err    error
}

func (f *fakeConfirmer) Confirm(ctx context.Context, params ConfirmParams) error {
	f.calls++
	f.params = params
	return f.err
}

type fakeQueue struct {
	jobs []models.ReconcileJob
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job models.ReconcileJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeRecorder struct {
	inserts  []models.PaymentRecord
	statuses []models.PaymentStatus
}

func (f *fakeRecorder) InsertPayment(ctx context.Context, record models.PaymentRecord) error {
	f.inserts = append(f.inserts, record)
	return nil
}

func (f *fakeRecorder) UpdatePaymentStatus(ctx context.Context, paymentRequestID string, status models.PaymentStatus, resultCode string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func newTestOrchestrator(gw *fakeGateway, confirmer *fakeConfirmer, queue *fakeQueue, recorder *fakeRecorder) *Orchestrator {
	// A nil *fakeRecorder must become a nil interface, or the orchestrator's
	// nil check cannot see it.
	var records PaymentRecorder
	if recorder != nil {
		records = recorder
	}
	o := NewOrchestrator(gw, confirmer, queue, records, OrchestratorConfig{
		Currency:       "USD",
		StatusAttempts: 3,
		StatusInterval: time.Millisecond,
	}, nil)
	o.WithNowFunc(fixedNow)
	o.WithSleepFunc(func(ctx context.Context, d time.Duration) error { return nil })
	return o
}

var testCard = gateway.Card{
	Number:     "4242 4242 4242 4242",
	Expiry:     "12/30",
	CVC:        "123",
	HolderName: "Ada Lovelace",
}

var testIntent = Intent{UserID: "user-1", PlanID: "plan_pro", Amount: "19.99"}

func TestPayWithCardCompleted(t *testing.T) {
	gw := &fakeGateway{
		processState: gateway.PaymentState{Status: "pending"},
		statusStates: []gateway.PaymentState{{Status: "completed"}},
	}
	confirmer := &fakeConfirmer{}
	recorder := &fakeRecorder{}
	o := newTestOrchestrator(gw, confirmer, &fakeQueue{}, recorder)

	result, err := o.PayWithCard(context.Background(), testIntent, testCard)
	if err != nil {
		t.Fatalf("pay with card: %v", err)
	}
	if result.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %v", result.Outcome)
	}
	if result.PaymentRequestID != "pr-42" {
		t.Fatalf("unexpected payment request id %q", result.PaymentRequestID)
	}

	// Amount is normalized to a float before it reaches the gateway.
	if gw.createParams.Amount != 19.99 {
		t.Fatalf("unexpected amount %v", gw.createParams.Amount)
	}
	if gw.createParams.MethodType != "CARD" {
		t.Fatalf("unexpected method type %q", gw.createParams.MethodType)
	}

	// Confirmation carries the same payment request id the gateway issued.
	if confirmer.calls != 1 {
		t.Fatalf("expected 1 confirm call, got %d", confirmer.calls)
	}
	if confirmer.params.PaymentRequestID != "pr-42" {
		t.Fatalf("confirm id mismatch: %q", confirmer.params.PaymentRequestID)
	}
	if confirmer.params.Kind != models.PurchaseKindSubscription || confirmer.params.PlanID != "plan_pro" {
		t.Fatalf("unexpected confirm params %+v", confirmer.params)
	}

	if len(recorder.inserts) != 1 || recorder.inserts[0].Status != models.PaymentStatusPending {
		t.Fatalf("unexpected payment records %+v", recorder.inserts)
	}
	if len(recorder.statuses) != 1 || recorder.statuses[0] != models.PaymentStatusCompleted {
		t.Fatalf("unexpected status updates %v", recorder.statuses)
	}
}

func TestPayWithCardPendingIsTerminal(t *testing.T) {
	gw := &fakeGateway{
		processState: gateway.PaymentState{Status: "pending"},
		statusStates: []gateway.PaymentState{{Status: "pending"}, {Status: "pending"}, {Status: "pending"}},
	}
	confirmer := &fakeConfirmer{}
	o := newTestOrchestrator(gw, confirmer, &fakeQueue{}, nil)

	result, err := o.PayWithCard(context.Background(), testIntent, testCard)
	if err != nil {
		t.Fatalf("pay with card: %v", err)
	}
	if result.Outcome != OutcomeProcessing {
		t.Fatalf("expected processing, got %v", result.Outcome)
	}
	if confirmer.calls != 0 {
		t.Fatal("pending payment must not be confirmed")
	}
	if gw.statusCalls != 3 {
		t.Fatalf("expected 3 status polls, got %d", gw.statusCalls)
	}
}

func TestPayWithCardFailureCarriesResultCode(t *testing.T) {
	gw := &fakeGateway{
		processState: gateway.PaymentState{Status: "pending"},
		statusStates: []gateway.PaymentState{{Status: "failed", ResultCode: "CARD_DECLINED"}},
	}
	o := newTestOrchestrator(gw, &fakeConfirmer{}, &fakeQueue{}, nil)

	_, err := o.PayWithCard(context.Background(), testIntent, testCard)
	var flowErr *FlowError
	if !errors.As(err, &flowErr) {
		t.Fatalf("expected FlowError, got %v", err)
	}
	if flowErr.ResultCode != "CARD_DECLINED" {
		t.Fatalf("expected result code, got %q", flowErr.ResultCode)
	}
}

func TestPayWithCardValidationFailsBeforeNetwork(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw, &fakeConfirmer{}, &fakeQueue{}, nil)

	badCard := testCard
	badCard.CVC = "1"
	if _, err := o.PayWithCard(context.Background(), testIntent, badCard); !errors.Is(err, ErrInvalidCVC) {
		t.Fatalf("expected cvc error, got %v", err)
	}

	badIntent := testIntent
	badIntent.Amount = "-1"
	if _, err := o.PayWithCard(context.Background(), badIntent, testCard); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected amount error, got %v", err)
	}

	badIntent.Amount = "abc"
	if _, err := o.PayWithCard(context.Background(), badIntent, testCard); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected amount error, got %v", err)
	}

	if gw.createCalls != 0 {
		t.Fatalf("local validation must not reach the gateway, got %d calls", gw.createCalls)
	}
}

func TestPayWithCardConfirmFailureQueuesReconcile(t *testing.T) {
	gw := &fakeGateway{processState: gateway.PaymentState{Status: "completed"}}
	confirmer := &fakeConfirmer{err: errors.New("backend down")}
	queue := &fakeQueue{}
	o := newTestOrchestrator(gw, confirmer, queue, nil)

	result, err := o.PayWithCard(context.Background(), testIntent, testCard)
	if err != nil {
		t.Fatalf("pay with card: %v", err)
	}
	if result.Outcome != OutcomeConfirmQueued {
		t.Fatalf("expected confirm queued, got %v", result.Outcome)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 reconcile job, got %d", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.PaymentRequestID != "pr-42" || job.UserID != "user-1" || job.Kind != models.PurchaseKindSubscription {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.LastError == "" {
		t.Fatal("expected reconcile job to retain the confirmation error")
	}
}

func TestPayWithCardConfirmAndQueueBothFail(t *testing.T) {
	gw := &fakeGateway{processState: gateway.PaymentState{Status: "completed"}}
	confirmer := &fakeConfirmer{err: errors.New("backend down")}
	queue := &fakeQueue{err: errors.New("db down")}
	o := newTestOrchestrator(gw, confirmer, queue, nil)

	_, err := o.PayWithCard(context.Background(), testIntent, testCard)
	var flowErr *FlowError
	if !errors.As(err, &flowErr) || flowErr.Stage != "confirmation" {
		t.Fatalf("expected confirmation FlowError, got %v", err)
	}
}

func TestPayWithWallet(t *testing.T) {
	gw := &fakeGateway{walletURL: "https://pay.example.com/p/1"}
	o := newTestOrchestrator(gw, &fakeConfirmer{}, &fakeQueue{}, nil)

	url, err := o.PayWithWallet(context.Background(), Intent{UserID: "user-1", AddonID: "coins_500", Amount: "4.99"}, "ALIPAY_CN")
	if err != nil {
		t.Fatalf("pay with wallet: %v", err)
	}
	if url != "https://pay.example.com/p/1" {
		t.Fatalf("unexpected redirect %q", url)
	}
	if gw.createParams.MethodType != "WALLET" || gw.createParams.AddonID != "coins_500" {
		t.Fatalf("unexpected create params %+v", gw.createParams)
	}
	if gw.walletType != "ALIPAY_CN" {
		t.Fatalf("unexpected wallet type %q", gw.walletType)
	}
}

func TestPayWithWalletRequiresPositiveAmount(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(gw, &fakeConfirmer{}, &fakeQueue{}, nil)

	if _, err := o.PayWithWallet(context.Background(), Intent{UserID: "u", Amount: "0"}, "ALIPAY_CN"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected amount error, got %v", err)
	}
	if gw.createCalls != 0 {
		t.Fatal("invalid amount must not reach the gateway")
	}
}
