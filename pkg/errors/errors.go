package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable error identifier sent to clients.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeIdempotency      Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit        Code = "RATE_LIMIT_EXCEEDED"
	CodePayloadTooLarge  Code = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeDependency       Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code is presented over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:       {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:     {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:        {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:         {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:         {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", DetailsAllowed: true},
	CodeIdempotency:      {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodeRateLimit:        {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", Retryable: true},
	CodePayloadTooLarge:  {HTTPStatus: http.StatusRequestEntityTooLarge, PublicMessage: "payload too large"},
	CodeUnsupportedMedia: {HTTPStatus: http.StatusUnsupportedMediaType, PublicMessage: "unsupported media type", DetailsAllowed: true},
	CodeInternal:         {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	CodeDependency:       {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
}

// MetadataFor falls back to INTERNAL_ERROR for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error every service returns. Message is shown to the
// client; the cause only reaches the logs.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and client-facing message to err. A nil err yields a
// plain New.
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

// WithDetails sets structured details shown to clients when the code allows.
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

// Is matches another *Error by code, so errors.Is(err, New(CodeNotFound, ""))
// works across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether any *Error in the chain carries code, not just the
// outermost one.
func IsCode(err error, code Code) bool {
	return stdErrors.Is(err, &Error{code: code})
}
