package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/repositories"
)

type fakePurchaseStore struct {
	recorded []models.Purchase
	err      error
}

func (f *fakePurchaseStore) RecordPurchase(_ context.Context, purchase models.Purchase) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, purchase)
	return nil
}

func TestConfirmSubscriptionGrantsPlanCoins(t *testing.T) {
	store := &fakePurchaseStore{}
	svc := NewConfirmService(store, DefaultGrants(), nil).WithNowFunc(fixedNow)

	err := svc.Confirm(context.Background(), ConfirmParams{
		UserID:           "user-1",
		Kind:             models.PurchaseKindSubscription,
		PlanID:           "plan_pro",
		Amount:           19.99,
		PaymentRequestID: "pr-1",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if len(store.recorded) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(store.recorded))
	}
	p := store.recorded[0]
	if p.CoinsGranted != 800 {
		t.Fatalf("expected 800 coins for plan_pro, got %d", p.CoinsGranted)
	}
	if p.PaymentRequestID != "pr-1" || p.Kind != models.PurchaseKindSubscription {
		t.Fatalf("unexpected purchase %+v", p)
	}
	if !p.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected created at %v", p.CreatedAt)
	}
}

func TestConfirmAddonGrantsPackCoins(t *testing.T) {
	store := &fakePurchaseStore{}
	svc := NewConfirmService(store, DefaultGrants(), nil)

	err := svc.Confirm(context.Background(), ConfirmParams{
		UserID:           "user-1",
		Kind:             models.PurchaseKindAddon,
		AddonID:          "coins_1200",
		Amount:           9.99,
		PaymentRequestID: "pr-2",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if store.recorded[0].CoinsGranted != 1200 {
		t.Fatalf("expected 1200 coins, got %d", store.recorded[0].CoinsGranted)
	}
}

func TestConfirmIdempotentOnConflict(t *testing.T) {
	store := &fakePurchaseStore{err: repositories.ErrConflict}
	svc := NewConfirmService(store, DefaultGrants(), nil)

	err := svc.Confirm(context.Background(), ConfirmParams{
		UserID:           "user-1",
		Kind:             models.PurchaseKindAddon,
		AddonID:          "coins_100",
		PaymentRequestID: "pr-3",
	})
	if err != nil {
		t.Fatalf("conflict must be treated as already confirmed, got %v", err)
	}
}

func TestConfirmRequiresIdentifiers(t *testing.T) {
	svc := NewConfirmService(&fakePurchaseStore{}, DefaultGrants(), nil)

	if err := svc.Confirm(context.Background(), ConfirmParams{UserID: "u"}); err == nil {
		t.Fatal("expected error for missing payment request id")
	}
	if err := svc.Confirm(context.Background(), ConfirmParams{PaymentRequestID: "pr"}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestConfirmSurfacesStoreErrors(t *testing.T) {
	store := &fakePurchaseStore{err: errors.New("db down")}
	svc := NewConfirmService(store, DefaultGrants(), nil)

	err := svc.Confirm(context.Background(), ConfirmParams{UserID: "u", PaymentRequestID: "pr", Kind: models.PurchaseKindAddon})
	if err == nil {
		t.Fatal("expected error")
	}
}
