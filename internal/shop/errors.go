package shop

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("shop: not found")
	ErrDuplicate = errors.New("shop: already exists")
)

// ErrorType categorizes collaborator errors so the conversation can pick a
// reply and decide whether the step may be retried.
type ErrorType string

const (
	ErrTypeNotFound  ErrorType = "not_found"
	ErrTypeDuplicate ErrorType = "duplicate"
	ErrTypeTimeout   ErrorType = "timeout"
	ErrTypeInternal  ErrorType = "internal"
)

// Error wraps a collaborator failure with a user-facing message in Spanish.
type Error struct {
	Type      ErrorType
	Message   string
	Err       error
	Retryable bool
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Classify maps an error returned by Customers or Vehicles to a typed Error.
func Classify(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{
			Type: ErrTypeTimeout, Retryable: true, Err: err,
			Message: "El sistema demoró en responder. Probá de nuevo en unos minutos.",
		}
	case errors.Is(err, ErrDuplicate):
		return &Error{
			Type: ErrTypeDuplicate, Retryable: false, Err: err,
			Message: "Ya existe un registro con esos datos.",
		}
	case errors.Is(err, ErrNotFound):
		return &Error{
			Type: ErrTypeNotFound, Retryable: false, Err: err,
			Message: "No encontramos el registro solicitado.",
		}
	default:
		return &Error{
			Type: ErrTypeInternal, Retryable: true, Err: err,
			Message: "No pudimos completar la operación. Intentá de nuevo.",
		}
	}
}
