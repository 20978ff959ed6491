package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateHold       = errors.New("duplicate hold")
	ErrHoldNotActive       = errors.New("hold not active")
	ErrBookingUnavailable  = errors.New("room/date combination not available")
	ErrUpstreamUnavailable = errors.New("upstream collaborator unavailable")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")

	ErrInvalidTTL       = errors.New("hold ttl must be positive")
	ErrInvalidStayRange = errors.New("invalid stay range")
	ErrInvalidGuest     = errors.New("guest name and email are required")
	ErrInvalidGuests    = errors.New("guest count must be positive")
)

// HoldNotActiveError reports a claim that found nothing: the hold was already
// confirmed, cancelled or expired (or never existed). Status carries the
// reservation's terminal state as reported by the booking collaborator, since
// the registry itself keeps no history.
type HoldNotActiveError struct {
	HoldID string
	Status GeneralStatus
}

func (e *HoldNotActiveError) Error() string {
	if e.Status == StatusUnknown {
		return fmt.Sprintf("hold %s is not active", e.HoldID)
	}
	return fmt.Sprintf("hold %s is not active (reservation is %s)", e.HoldID, e.Status)
}

func (e *HoldNotActiveError) Is(target error) bool {
	return target == ErrHoldNotActive
}

// PaymentError wraps the gateway cause so callers can match both
// ErrPaymentFailed and the specific cause with errors.Is.
type PaymentError struct {
	Cause error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %v", e.Cause)
}

func (e *PaymentError) Unwrap() error {
	return e.Cause
}

func (e *PaymentError) Is(target error) bool {
	return target == ErrPaymentFailed
}
