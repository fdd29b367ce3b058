// Package errors carries the typed error codes every layer returns and the
// HTTP policy attached to each code.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	// CodeConflict covers insufficient stock and unique-key clashes.
	CodeConflict Code = "CONFLICT"
	// CodeStateConflict is a disallowed order, payment or delivery transition.
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is the response policy for a code. Details are only echoed to
// clients when DetailsAllowed is set.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	noDetails   = false
	withDetails = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, false, "validation failed", withDetails},
	CodeUnauthorized:  {http.StatusUnauthorized, false, "authentication required", noDetails},
	CodeForbidden:     {http.StatusForbidden, false, "access denied", noDetails},
	CodeNotFound:      {http.StatusNotFound, false, "resource not found", noDetails},
	CodeConflict:      {http.StatusConflict, false, "conflict detected", withDetails},
	CodeStateConflict: {http.StatusUnprocessableEntity, false, "state transition disallowed", withDetails},
	CodeIdempotency:   {http.StatusConflict, false, "idempotency key reused", withDetails},
	CodeRateLimit:     {http.StatusTooManyRequests, false, "rate limit exceeded", noDetails},
	CodeInternal:      {http.StatusInternalServerError, true, "internal server error", noDetails},
	CodeDependency:    {http.StatusServiceUnavailable, true, "dependency unavailable", withDetails},
}

// MetadataFor falls back to the internal-error policy for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches a client-visible payload such as {"productId": ...}.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) Retryable() bool {
	return MetadataFor(e.Code()).Retryable
}

// CodeOf returns the outermost typed code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return As(err) != nil && CodeOf(err) == code
}

func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
