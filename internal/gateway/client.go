package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Card carries the details collected from the card form. Transient: built
// from user input, sent once, never persisted.
type Card struct {
	Number     string
	Expiry     string // MM/YY
	CVC        string
	HolderName string
}

// CreatePaymentParams describes one payment request to be opened on the gateway.
type CreatePaymentParams struct {
	Amount     float64
	Currency   string
	MethodType string
	PlanID     string
	AddonID    string
}

// PaymentState is the gateway's view of one payment request.
type PaymentState struct {
	PaymentRequestID string `json:"payment_request_id"`
	Status           string `json:"status"`
	ResultCode       string `json:"result_code"`
	RedirectURL      string `json:"redirect_url"`
}

// HistoryEntry is one row of the gateway-side payment history.
type HistoryEntry struct {
	PaymentRequestID string    `json:"payment_request_id"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Client wraps the payment gateway REST API. All operations except token
// acquisition attach a bearer token obtained from the TokenSource.
type Client struct {
	baseURL    string
	merchantID string
	tokens     *TokenSource
	httpClient *http.Client
}

// NewClient constructs a gateway client around the provided token source.
func NewClient(baseURL, merchantID string, tokens *TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		merchantID: merchantID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient overrides the underlying HTTP client. Useful for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CreatePayment opens a payment request on the gateway and returns its id.
func (c *Client) CreatePayment(ctx context.Context, params CreatePaymentParams) (string, error) {
	payload := map[string]any{
		"merchant_id":         c.merchantID,
		"amount":              params.Amount,
		"currency":            params.Currency,
		"payment_method_type": params.MethodType,
		"metadata": map[string]string{
			"planId":  params.PlanID,
			"addonId": params.AddonID,
		},
	}

	var out PaymentState
	if err := c.post(ctx, "/payment/create", payload, &out); err != nil {
		return "", fmt.Errorf("create payment: %w", err)
	}
	if out.PaymentRequestID == "" {
		return "", ErrMissingPaymentID
	}
	return out.PaymentRequestID, nil
}

// ProcessCardPayment submits card details against an open payment request.
// The card number is sent with spaces stripped and the expiry reformatted
// from MM/YY to MMYY.
func (c *Client) ProcessCardPayment(ctx context.Context, paymentRequestID string, card Card) (PaymentState, error) {
	payload := map[string]any{
		"payment_request_id": paymentRequestID,
		"card": map[string]string{
			"number":      strings.ReplaceAll(card.Number, " ", ""),
			"expiry":      formatExpiry(card.Expiry),
			"cvc":         card.CVC,
			"holder_name": card.HolderName,
		},
	}

	var out PaymentState
	if err := c.post(ctx, "/payment/process/card", payload, &out); err != nil {
		return PaymentState{}, fmt.Errorf("process card payment: %w", err)
	}
	return out, nil
}

// ProcessWalletPayment starts a wallet flow and returns the externally hosted
// payment page the user must be redirected to. Completion is not observed here.
func (c *Client) ProcessWalletPayment(ctx context.Context, paymentRequestID, walletType string) (string, error) {
	payload := map[string]any{
		"payment_request_id": paymentRequestID,
		"wallet_type":        walletType,
	}

	var out PaymentState
	if err := c.post(ctx, "/payment/process/wallet", payload, &out); err != nil {
		return "", fmt.Errorf("process wallet payment: %w", err)
	}
	if out.RedirectURL == "" {
		return "", fmt.Errorf("process wallet payment: response missing redirect url")
	}
	return out.RedirectURL, nil
}

// GetPaymentStatus fetches the current state of one payment request.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentRequestID string) (PaymentState, error) {
	var out PaymentState
	if err := c.get(ctx, "/payment/status/"+url.PathEscape(paymentRequestID), &out); err != nil {
		return PaymentState{}, fmt.Errorf("get payment status: %w", err)
	}
	return out, nil
}

// CancelPayment voids an open payment request.
func (c *Client) CancelPayment(ctx context.Context, paymentRequestID string) error {
	if err := c.post(ctx, "/payment/cancel/"+url.PathEscape(paymentRequestID), nil, nil); err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}
	return nil
}

// GetPaymentHistory lists gateway-side payment requests, newest first.
func (c *Client) GetPaymentHistory(ctx context.Context, page, limit int, status string) ([]HistoryEntry, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if status != "" {
		q.Set("status", status)
	}

	var out struct {
		Payments []HistoryEntry `json:"payments"`
	}
	if err := c.get(ctx, "/payment/history?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("get payment history: %w", err)
	}
	return out.Payments, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// classifyStatus maps a non-2xx gateway response onto the error taxonomy:
// 401 invalid credentials, 403 forbidden, anything else a StatusError
// carrying the server-provided message when the body parses as JSON.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrInvalidCredentials
	case http.StatusForbidden:
		return ErrForbidden
	}

	return &StatusError{StatusCode: resp.StatusCode, Message: extractMessage(resp.Body)}
}

func extractMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// formatExpiry turns a form expiry of MM/YY into the gateway's MMYY shape.
func formatExpiry(expiry string) string {
	return strings.ReplaceAll(expiry, "/", "")
}
