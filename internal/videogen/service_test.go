package videogen

import (
	"context"
	"errors"
	"testing"

	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/repositories"
)

type ledgerStub struct {
	balance  int64
	debits   []int64
	credits  []int64
	debitErr error
}

func (l *ledgerStub) DebitCoins(_ context.Context, _ string, amount int64) error {
	if l.debitErr != nil {
		return l.debitErr
	}
	if l.balance < amount {
		return repositories.ErrInsufficientFunds
	}
	l.balance -= amount
	l.debits = append(l.debits, amount)
	return nil
}

func (l *ledgerStub) CreditCoins(_ context.Context, _ string, amount int64) error {
	l.balance += amount
	l.credits = append(l.credits, amount)
	return nil
}

type engineStub struct {
	created []CreateVideoParams
	err     error
}

func (e *engineStub) CreateVideo(_ context.Context, params CreateVideoParams) (models.VideoTask, error) {
	if e.err != nil {
		return models.VideoTask{}, e.err
	}
	e.created = append(e.created, params)
	return models.VideoTask{VideoID: "vid_1", Status: "pending"}, nil
}

func TestGenerationServiceChargesThenSubmits(t *testing.T) {
	ledger := &ledgerStub{balance: 100}
	engine := &engineStub{}
	svc := NewGenerationService(engine, ledger, nil)

	task, cost, err := svc.Generate(context.Background(), "user-1", "a cat surfing", "", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if task.VideoID != "vid_1" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if cost != CostBasic {
		t.Fatalf("expected basic cost, got %d", cost)
	}
	if ledger.balance != 100-CostBasic {
		t.Fatalf("expected balance debited, got %d", ledger.balance)
	}
	if len(engine.created) != 1 || engine.created[0].PromptText != "a cat surfing" {
		t.Fatalf("unexpected engine call: %+v", engine.created)
	}
}

func TestGenerationServicePremiumTemplateCost(t *testing.T) {
	ledger := &ledgerStub{balance: 100}
	engine := &engineStub{}
	svc := NewGenerationService(engine, ledger, nil)

	_, cost, err := svc.Generate(context.Background(), "user-1", "ignored", "https://img.example/me.jpg", "hug")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if cost != CostPremium {
		t.Fatalf("expected premium cost, got %d", cost)
	}
	if engine.created[0].PromptText != "" {
		t.Fatal("expected prompt cleared in template mode")
	}
	if engine.created[0].Template != "hug" {
		t.Fatalf("expected template forwarded, got %q", engine.created[0].Template)
	}
}

func TestGenerationServiceInsufficientCoins(t *testing.T) {
	ledger := &ledgerStub{balance: 10}
	engine := &engineStub{}
	svc := NewGenerationService(engine, ledger, nil)

	_, cost, err := svc.Generate(context.Background(), "user-1", "a cat", "", "")
	if !errors.Is(err, ErrInsufficientCoins) {
		t.Fatalf("expected ErrInsufficientCoins, got %v", err)
	}
	if cost != CostBasic {
		t.Fatalf("expected required cost reported, got %d", cost)
	}
	if len(engine.created) != 0 {
		t.Fatal("engine must not be called when the balance is short")
	}
}

func TestGenerationServiceRefundsOnEngineFailure(t *testing.T) {
	ledger := &ledgerStub{balance: 100}
	engine := &engineStub{err: errors.New("engine down")}
	svc := NewGenerationService(engine, ledger, nil)

	_, _, err := svc.Generate(context.Background(), "user-1", "a cat", "", "")
	if err == nil {
		t.Fatal("expected engine failure to surface")
	}
	if ledger.balance != 100 {
		t.Fatalf("expected refund to restore balance, got %d", ledger.balance)
	}
	if len(ledger.credits) != 1 || ledger.credits[0] != CostBasic {
		t.Fatalf("expected one refund of %d, got %+v", CostBasic, ledger.credits)
	}
}

func TestGenerationServiceRejectsEmptyRequest(t *testing.T) {
	ledger := &ledgerStub{balance: 100}
	engine := &engineStub{}
	svc := NewGenerationService(engine, ledger, nil)

	if _, _, err := svc.Generate(context.Background(), "user-1", "   ", "", ""); !errors.Is(err, ErrEmptyRequest) {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
	if len(ledger.debits) != 0 {
		t.Fatal("no debit expected for an empty request")
	}
}
