// Package runfail provides the standardized error taxonomy for workflow runs.
package runfail

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of a block or run. Codes cross the
// handler boundary inside BlockResult and must stay stable, they are
// surfaced to API clients and recorded on run results.
type Code string

const (
	CodeAccessDenied    Code = "ACCESS_DENIED"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeInvalidConfig   Code = "INVALID_CONFIG"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeExternalService Code = "EXTERNAL_SERVICE_ERROR"
	CodeTokenExpired    Code = "TOKEN_EXPIRED"
	CodeTokenRevoked    Code = "TOKEN_REVOKED"
	CodeInvalidToken    Code = "INVALID_TOKEN"
	CodeTimeout         Code = "TIMEOUT"
)

// Sentinel errors matching the taxonomy. Handlers wrap these so callers
// can classify failures with errors.Is.
var (
	ErrAccessDenied    = errors.New("access denied")
	ErrRateLimited     = errors.New("rate limited")
	ErrInvalidConfig   = errors.New("invalid block configuration")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service error")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenRevoked    = errors.New("token revoked")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTimeout         = errors.New("run timed out")
)

// Error carries a taxonomy code together with the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target) || errors.Is(sentinel(e.Code), target)
}

// New creates a taxonomy error with a human-readable message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: sentinel(code)}
}

// Wrap creates a taxonomy error around an underlying cause.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the taxonomy code from an error chain. Unclassified
// errors map to EXTERNAL_SERVICE_ERROR, the catch-all for anything a
// handler did not anticipate.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	switch {
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return CodeTokenRevoked
	case errors.Is(err, ErrInvalidToken):
		return CodeInvalidToken
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	default:
		return CodeExternalService
	}
}

func sentinel(code Code) error {
	switch code {
	case CodeAccessDenied:
		return ErrAccessDenied
	case CodeRateLimited:
		return ErrRateLimited
	case CodeInvalidConfig:
		return ErrInvalidConfig
	case CodeValidation:
		return ErrValidation
	case CodeTokenExpired:
		return ErrTokenExpired
	case CodeTokenRevoked:
		return ErrTokenRevoked
	case CodeInvalidToken:
		return ErrInvalidToken
	case CodeTimeout:
		return ErrTimeout
	default:
		return ErrExternalService
	}
}

// IsAccessDenied checks whether err classifies as an access failure.
func IsAccessDenied(err error) bool { return errors.Is(err, ErrAccessDenied) }

// IsRateLimited checks whether err classifies as a rate-limit rejection.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsValidation checks whether err classifies as a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidConfig)
}

// IsTimeout checks whether err classifies as a run deadline failure.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }
