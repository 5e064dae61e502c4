package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// TokenSource caches the gateway bearer token and refreshes it on demand.
// The server-side lifetime is 24h; the cache expires slightly early so a
// token is never presented within its final hour. A cached token is reused
// for every call until its expiry passes; this type performs no retries --
// callers decide retry policy.
type TokenSource struct {
	baseURL    string
	clientID   string
	privateKey string
	ttl        time.Duration
	httpClient *http.Client
	nowFunc    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// TokenSourceOption customizes a TokenSource.
type TokenSourceOption func(*TokenSource)

// WithTokenHTTPClient overrides the HTTP client used for token requests.
func WithTokenHTTPClient(c *http.Client) TokenSourceOption {
	return func(ts *TokenSource) { ts.httpClient = c }
}

// WithTokenNowFunc overrides the time source. Useful for tests.
func WithTokenNowFunc(now func() time.Time) TokenSourceOption {
	return func(ts *TokenSource) { ts.nowFunc = now }
}

// NewTokenSource constructs a token cache for the provided gateway credentials.
func NewTokenSource(baseURL, clientID, privateKey string, ttl time.Duration, opts ...TokenSourceOption) *TokenSource {
	if ttl <= 0 {
		ttl = 23 * time.Hour
	}
	ts := &TokenSource{
		baseURL:    baseURL,
		clientID:   clientID,
		privateKey: privateKey,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Token returns the cached bearer token while it is still fresh, otherwise
// authenticates against the gateway and caches the result.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.nowFunc()
	if ts.token != "" && now.Before(ts.expiresAt) {
		return ts.token, nil
	}

	token, err := ts.authenticate(ctx)
	if err != nil {
		return "", err
	}

	ts.token = token
	ts.expiresAt = now.Add(ts.ttl)
	return token, nil
}

// Invalidate drops the cached token so the next Token call re-authenticates.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token = ""
	ts.expiresAt = time.Time{}
	ts.mu.Unlock()
}

func (ts *TokenSource) authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":   ts.clientID,
		"private_key": ts.privateKey,
	})
	if err != nil {
		return "", fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return "", err
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("parse auth response: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("auth response missing token")
	}

	return payload.Token, nil
}
