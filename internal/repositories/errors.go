package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrInsufficientFunds indicates a coin debit larger than the current balance.
	ErrInsufficientFunds = errors.New("insufficient coin balance")
)
