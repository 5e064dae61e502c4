package payment

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/reelcraft/backend/internal/gateway"
)

var (
	// ErrInvalidCardNumber indicates the card number is not 13-19 digits.
	ErrInvalidCardNumber = errors.New("card number must be 13-19 digits")
	// ErrInvalidExpiry indicates a malformed or past MM/YY expiry.
	ErrInvalidExpiry = errors.New("card expiry must be a future MM/YY date")
	// ErrInvalidCVC indicates the security code is not 3-4 digits.
	ErrInvalidCVC = errors.New("card cvc must be 3-4 digits")
	// ErrMissingHolderName indicates an empty cardholder name.
	ErrMissingHolderName = errors.New("cardholder name is required")
	// ErrInvalidAmount indicates a price string that does not parse to a positive number.
	ErrInvalidAmount = errors.New("amount must be a positive number")
)

// ValidateCard checks card details locally before anything leaves the
// process. NowFunc defaults to time.Now; validation treats the expiry month
// itself as still valid.
func ValidateCard(card gateway.Card, nowFunc func() time.Time) error {
	if nowFunc == nil {
		nowFunc = time.Now
	}

	number := strings.ReplaceAll(card.Number, " ", "")
	if len(number) < 13 || len(number) > 19 || !allDigits(number) {
		return ErrInvalidCardNumber
	}

	month, year, ok := parseExpiry(card.Expiry)
	if !ok {
		return ErrInvalidExpiry
	}
	now := nowFunc()
	expiry := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	if !now.Before(expiry) {
		return ErrInvalidExpiry
	}

	if len(card.CVC) < 3 || len(card.CVC) > 4 || !allDigits(card.CVC) {
		return ErrInvalidCVC
	}

	if strings.TrimSpace(card.HolderName) == "" {
		return ErrMissingHolderName
	}

	return nil
}

// ParseAmount normalizes a display price such as "$1,299.99" to a positive
// float. Anything that cleans to a non-positive or non-numeric value is a
// local error; no network call happens downstream of a failure here.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func parseExpiry(expiry string) (month, year int, ok bool) {
	parts := strings.Split(expiry, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, false
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}

	shortYear, err := strconv.Atoi(parts[1])
	if err != nil || shortYear < 0 {
		return 0, 0, false
	}

	return month, 2000 + shortYear, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
