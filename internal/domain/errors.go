package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	ErrValidation      = errors.New("validation failed")
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	ErrCodeExpired     = errors.New("verification code expired or not found")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrRateLimited     = errors.New("too many requests")
)

// ValidationError names the input field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RateUnavailableError reports that neither the rate oracle nor the fallback
// table could price a pair.
type RateUnavailableError struct {
	Pair  Pair
	Cause error
}

func (e *RateUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no rate for %s: %v", e.Pair, e.Cause)
	}
	return fmt.Sprintf("no rate for %s", e.Pair)
}

func (e *RateUnavailableError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrRateUnavailable, e.Cause}
	}
	return []error{ErrRateUnavailable}
}

// InvalidCodeError is returned for a wrong code while attempts remain.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

func (e *InvalidCodeError) Unwrap() error { return ErrInvalidCode }

// RateLimitedError carries how long the caller must wait before resending.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another code", int(e.Wait.Seconds()))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }
