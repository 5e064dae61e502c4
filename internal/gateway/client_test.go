package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestGateway returns a client pointed at a fake gateway whose /auth/token
// endpoint always succeeds, routing every other request into handler.
func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token" {
			_, _ = w.Write([]byte(`{"token":"test-token"}`))
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", got)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	tokens := NewTokenSource(srv.URL, "client", "key", time.Hour)
	return NewClient(srv.URL, "merchant-1", tokens), srv
}

func TestCreatePayment(t *testing.T) {
	var body map[string]any
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment/create" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"payment_request_id":"pr-77","status":"pending"}`))
	})

	id, err := client.CreatePayment(context.Background(), CreatePaymentParams{
		Amount:     19.99,
		Currency:   "USD",
		MethodType: "CARD",
		PlanID:     "plan-pro",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if id != "pr-77" {
		t.Fatalf("unexpected payment request id %q", id)
	}

	if got := body["merchant_id"]; got != "merchant-1" {
		t.Fatalf("unexpected merchant_id %v", got)
	}
	// Amount must cross the wire as a JSON number, not a string.
	if got, ok := body["amount"].(float64); !ok || got != 19.99 {
		t.Fatalf("unexpected amount %v (%T)", body["amount"], body["amount"])
	}
	meta, _ := body["metadata"].(map[string]any)
	if meta["planId"] != "plan-pro" {
		t.Fatalf("unexpected metadata %v", meta)
	}
}

func TestCreatePaymentMissingID(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	})

	_, err := client.CreatePayment(context.Background(), CreatePaymentParams{Amount: 5, Currency: "USD", MethodType: "CARD"})
	if !errors.Is(err, ErrMissingPaymentID) {
		t.Fatalf("expected ErrMissingPaymentID, got %v", err)
	}
}

func TestProcessCardPaymentWireFormat(t *testing.T) {
	var body struct {
		PaymentRequestID string            `json:"payment_request_id"`
		Card             map[string]string `json:"card"`
	}
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment/process/card" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"payment_request_id":"pr-1","status":"completed"}`))
	})

	state, err := client.ProcessCardPayment(context.Background(), "pr-1", Card{
		Number:     "4242 4242 4242 4242",
		Expiry:     "08/27",
		CVC:        "123",
		HolderName: "Ada Lovelace",
	})
	if err != nil {
		t.Fatalf("process card: %v", err)
	}
	if state.Status != "completed" {
		t.Fatalf("unexpected status %q", state.Status)
	}

	if body.Card["number"] != "4242424242424242" {
		t.Fatalf("card number not stripped: %q", body.Card["number"])
	}
	if body.Card["expiry"] != "0827" {
		t.Fatalf("expiry not reformatted: %q", body.Card["expiry"])
	}
	if body.PaymentRequestID != "pr-1" {
		t.Fatalf("unexpected payment request id %q", body.PaymentRequestID)
	}
}

func TestProcessWalletPaymentRedirect(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_request_id":"pr-2","redirect_url":"https://pay.example.com/p/abc"}`))
	})

	url, err := client.ProcessWalletPayment(context.Background(), "pr-2", "ALIPAY_HK")
	if err != nil {
		t.Fatalf("process wallet: %v", err)
	}
	if url != "https://pay.example.com/p/abc" {
		t.Fatalf("unexpected redirect url %q", url)
	}
}

func TestCancelPayment(t *testing.T) {
	var path string
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"payment_request_id":"pr-5","status":"cancelled"}`))
	})

	if err := client.CancelPayment(context.Background(), "pr-5"); err != nil {
		t.Fatalf("cancel payment: %v", err)
	}
	if path != "/payment/cancel/pr-5" {
		t.Fatalf("unexpected path %s", path)
	}
}

func TestGetPaymentStatus(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment/status/pr-9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"payment_request_id":"pr-9","status":"failed","result_code":"CARD_DECLINED"}`))
	})

	state, err := client.GetPaymentStatus(context.Background(), "pr-9")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if state.Status != "failed" || state.ResultCode != "CARD_DECLINED" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestGetPaymentHistory(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "20" || q.Get("status") != "completed" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"payments":[{"payment_request_id":"pr-1","amount":9.99,"currency":"USD","status":"completed"}]}`))
	})

	entries, err := client.GetPaymentHistory(context.Background(), 2, 20, "completed")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(entries) != 1 || entries[0].PaymentRequestID != "pr-1" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestClientSurfacesGatewayErrors(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"amount below minimum"}`))
	})

	_, err := client.CreatePayment(context.Background(), CreatePaymentParams{Amount: 0.01, Currency: "USD", MethodType: "CARD"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Message != "amount below minimum" {
		t.Fatalf("unexpected message %q", statusErr.Message)
	}
}
