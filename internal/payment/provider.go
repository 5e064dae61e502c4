package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State describes the provider's initialization lifecycle.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrInitializationFailed wraps the last authentication error once retries
// are exhausted.
var ErrInitializationFailed = errors.New("payment gateway initialization failed")

// Authenticator acquires a gateway bearer token. gateway.TokenSource
// satisfies this.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
}

// Provider lazily authenticates against the payment gateway exactly once,
// with bounded retries. A single coordinator owns each initialization
// attempt: the first caller to find the provider idle runs the attempt
// (including its retries) to completion, and every concurrent caller waits
// on that same attempt's outcome. Retries are awaited by the coordinator,
// never detached, so two authentication attempts can never overlap.
type Provider struct {
	auth       Authenticator
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	lastErr error
	done    chan struct{} // non-nil exactly while state == StateInitializing
}

// NewProvider constructs a Provider around the given authenticator.
// maxRetries counts additional attempts after the first failure.
func NewProvider(auth Authenticator, maxRetries int, retryDelay time.Duration, logger *slog.Logger) *Provider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		auth:       auth,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// State reports the current lifecycle state and, when failed, the last error.
func (p *Provider) State() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.lastErr
}

// Ensure blocks until the provider is ready or the current initialization
// attempt has failed. Calling Ensure when already ready is a no-op. A call
// that finds the provider failed starts a fresh attempt; recovery after
// exhausted retries only happens through such an explicit call.
func (p *Provider) Ensure(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateReady:
		p.mu.Unlock()
		return nil
	case StateInitializing:
		done := p.done
		p.mu.Unlock()
		return p.await(ctx, done)
	default: // idle or failed: become the coordinator
		p.state = StateInitializing
		p.lastErr = nil
		p.done = make(chan struct{})
		p.mu.Unlock()
		return p.initialize(ctx)
	}
}

// await waits for the in-flight attempt owned by another caller. It does not
// itself retry.
func (p *Provider) await(ctx context.Context, done chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateReady {
		return nil
	}
	if p.lastErr != nil {
		return p.lastErr
	}
	return ErrInitializationFailed
}

func (p *Provider) initialize(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("retrying gateway authentication",
				"attempt", attempt+1,
				"max_attempts", p.maxRetries+1,
				"delay", p.retryDelay,
			)
			if err := sleepCtx(ctx, p.retryDelay); err != nil {
				p.finish(StateFailed, err)
				return err
			}
		}

		if _, err := p.auth.Token(ctx); err != nil {
			lastErr = err
			p.logger.Warn("gateway authentication failed", "attempt", attempt+1, "error", err)
			continue
		}

		p.finish(StateReady, nil)
		p.logger.Info("payment gateway ready", "attempts", attempt+1)
		return nil
	}

	wrapped := fmt.Errorf("%w after %d attempts: %v", ErrInitializationFailed, p.maxRetries+1, lastErr)
	p.finish(StateFailed, wrapped)
	p.logger.Error("payment gateway initialization exhausted retries", "error", lastErr)
	return wrapped
}

func (p *Provider) finish(state State, err error) {
	p.mu.Lock()
	p.state = state
	p.lastErr = err
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	p.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
