package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates the gateway rejected the client credentials.
	ErrInvalidCredentials = errors.New("gateway: invalid client credentials")
	// ErrForbidden indicates the credentials are valid but lack permission.
	ErrForbidden = errors.New("gateway: access forbidden")
	// ErrMissingPaymentID indicates a create response without a payment request id.
	ErrMissingPaymentID = errors.New("gateway: response missing payment request id")
)

// StatusError carries a non-2xx gateway response along with the
// human-readable message extracted from its body, when one was present.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway: unexpected status %d", e.StatusCode)
}

// NetworkError wraps a transport-level failure where no HTTP response was
// received at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
