package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelcraft/backend/internal/gateway"
	"github.com/reelcraft/backend/internal/logging"
	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/payment"
)

// PaymentHandler implements the purchase endpoints: card and wallet flows,
// gateway-side status and history lookups, and purchase confirmation.
type PaymentHandler struct {
	Session   GatewaySession
	Flow      PaymentFlow
	Reader    PaymentReader
	Confirmer PurchaseConfirmer
	Limiter   RateLimiter
}

type chargeRequest struct {
	UserID  string `json:"userId"`
	PlanID  string `json:"planId"`
	AddonID string `json:"addonId"`
	Amount  string `json:"amount"`
	Card    struct {
		Number     string `json:"number"`
		Expiry     string `json:"expiry"`
		CVC        string `json:"cvc"`
		HolderName string `json:"holderName"`
	} `json:"card"`
}

type walletRequest struct {
	UserID     string `json:"userId"`
	PlanID     string `json:"planId"`
	AddonID    string `json:"addonId"`
	Amount     string `json:"amount"`
	WalletType string `json:"walletType"`
}

type confirmRequest struct {
	UserID           string  `json:"userId"`
	PlanID           string  `json:"planId"`
	AddonID          string  `json:"addonId"`
	Amount           float64 `json:"amount"`
	PaymentRequestID string  `json:"paymentRequestId"`
}

// Charge handles POST /api/v1/payments requests running the full card flow.
func (h PaymentHandler) Charge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "payments") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many payment attempts"})
		return
	}

	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid charge payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}
	if req.PlanID == "" && req.AddonID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "planId or addonId is required"})
		return
	}

	if err := h.Session.Ensure(ctx); err != nil {
		logger.Error("payment provider unavailable", "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "payment service unavailable"})
		return
	}

	intent := payment.Intent{
		UserID:  req.UserID,
		PlanID:  req.PlanID,
		AddonID: req.AddonID,
		Amount:  req.Amount,
	}
	card := gateway.Card{
		Number:     req.Card.Number,
		Expiry:     req.Card.Expiry,
		CVC:        req.Card.CVC,
		HolderName: req.Card.HolderName,
	}

	result, err := h.Flow.PayWithCard(ctx, intent, card)
	if err != nil {
		respondFlowError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome != payment.OutcomeSucceeded {
		status = http.StatusAccepted
	}
	respondJSON(ctx, w, status, map[string]string{
		"status":           string(result.Outcome),
		"paymentRequestId": result.PaymentRequestID,
	})
}

// Wallet handles POST /api/v1/payments/wallet requests, returning the hosted
// payment page the client must redirect to.
func (h PaymentHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "payments") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many payment attempts"})
		return
	}

	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid wallet payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}
	if req.PlanID == "" && req.AddonID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "planId or addonId is required"})
		return
	}

	if err := h.Session.Ensure(ctx); err != nil {
		logger.Error("payment provider unavailable", "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "payment service unavailable"})
		return
	}

	intent := payment.Intent{
		UserID:  req.UserID,
		PlanID:  req.PlanID,
		AddonID: req.AddonID,
		Amount:  req.Amount,
	}

	redirectURL, err := h.Flow.PayWithWallet(ctx, intent, req.WalletType)
	if err != nil {
		respondFlowError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"redirectUrl": redirectURL})
}

// Status handles GET /api/v1/payments/status requests.
func (h PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	requestID := strings.TrimSpace(r.URL.Query().Get("paymentRequestId"))
	if requestID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "paymentRequestId is required"})
		return
	}

	if err := h.Session.Ensure(ctx); err != nil {
		logger.Error("payment provider unavailable", "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "payment service unavailable"})
		return
	}

	state, err := h.Reader.GetPaymentStatus(ctx, requestID)
	if err != nil {
		respondGatewayError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, state)
}

// History handles GET /api/v1/payments/history requests.
func (h PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	if err := h.Session.Ensure(ctx); err != nil {
		logger.Error("payment provider unavailable", "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "payment service unavailable"})
		return
	}

	entries, err := h.Reader.GetPaymentHistory(ctx, page, limit, status)
	if err != nil {
		respondGatewayError(ctx, w, err)
		return
	}
	if entries == nil {
		entries = []gateway.HistoryEntry{}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"payments": entries,
		"page":     page,
	})
}

// ConfirmSubscription handles POST /api/v1/subscription/confirm requests.
func (h PaymentHandler) ConfirmSubscription(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, true)
}

// ConfirmAddon handles POST /api/v1/addon/confirm requests.
func (h PaymentHandler) ConfirmAddon(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, false)
}

func (h PaymentHandler) confirm(w http.ResponseWriter, r *http.Request, subscription bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid confirm payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.UserID == "" || req.PaymentRequestID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId and paymentRequestId are required"})
		return
	}

	params := payment.ConfirmParams{
		UserID:           req.UserID,
		PlanID:           req.PlanID,
		AddonID:          req.AddonID,
		Amount:           req.Amount,
		PaymentRequestID: req.PaymentRequestID,
	}
	if subscription {
		params.Kind = models.PurchaseKindSubscription
		if req.PlanID == "" {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "planId is required"})
			return
		}
	} else {
		params.Kind = models.PurchaseKindAddon
		if req.AddonID == "" {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "addonId is required"})
			return
		}
	}

	if err := h.Confirmer.Confirm(ctx, params); err != nil {
		logger.Error("purchase confirmation failed", "paymentRequestId", req.PaymentRequestID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to confirm purchase"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// respondFlowError maps a card or wallet flow failure onto an HTTP response:
// validation problems are the caller's fault, declines carry the gateway's
// result code, everything else is an upstream failure.
func respondFlowError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logging.FromContext(ctx)

	var flowErr *payment.FlowError
	if errors.As(err, &flowErr) {
		switch {
		case flowErr.Stage == "validation":
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": flowErr.Err.Error()})
			return
		case flowErr.ResultCode != "":
			respondJSON(ctx, w, http.StatusPaymentRequired, map[string]string{
				"error":      "payment declined",
				"resultCode": flowErr.ResultCode,
			})
			return
		}
	}

	logger.Error("payment flow failed", "error", err)
	respondGatewayError(ctx, w, err)
}

func respondGatewayError(ctx context.Context, w http.ResponseWriter, err error) {
	var statusErr *gateway.StatusError
	switch {
	case errors.Is(err, gateway.ErrInvalidCredentials), errors.Is(err, gateway.ErrForbidden):
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "payment service rejected credentials"})
	case errors.As(err, &statusErr):
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": statusErr.Message})
	default:
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "payment service unavailable"})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
