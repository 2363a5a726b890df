// Package apperr declares the error kinds shared by every bounded context.
// Domain packages wrap one of these in their sentinel errors so that the
// transport layer can map an error to a status code with errors.Is alone.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidState        = errors.New("invalid state")
	ErrPaymentVerification = errors.New("payment verification failed")
)

// Validation returns an error of kind ErrValidation carrying msg as its text.
func Validation(msg string) error {
	return &kindError{kind: ErrValidation, msg: msg}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return Validation(fmt.Sprintf(format, args...))
}

// New returns an error of the given kind whose message is exactly msg.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Message returns the text of the outermost kinded error in err's chain,
// dropping the wrapping context added on the way up. Errors without a kind
// return their full text.
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return err.Error()
}
