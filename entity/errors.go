package entity

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrSignature       = errors.New("invalid webhook signature")
	ErrConfiguration   = errors.New("configuration error")
)

// GatewayError carries the provider's own description of a failed call.
type GatewayError struct {
	Provider  string
	Operation string
	Detail    string
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Operation, e.Detail)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidAmountf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAmount, fmt.Sprintf(format, args...))
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
