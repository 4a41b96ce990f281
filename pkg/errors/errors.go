// Package errors carries a stable code on errors that cross a pipeline stage
// or reach an HTTP client. The code decides the status, whether the message
// is public and whether a retry can help.
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
	CodeConflict     Code = "CONFLICT"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// pipeline stages
	CodeFetch               Code = "FETCH_ERROR"
	CodeGeneration          Code = "GENERATION_ERROR"
	CodeNormalization       Code = "NORMALIZATION_ERROR"
	CodePersistenceConflict Code = "PERSISTENCE_CONFLICT"
	CodeAutomation          Code = "AUTOMATION_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// ClientMessage lets the error's own message reach the client.
	ClientMessage  bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:          {http.StatusBadRequest, false, "validation failed", true, true},
	CodeUnauthorized:        {http.StatusUnauthorized, false, "authentication required", true, false},
	CodeForbidden:           {http.StatusForbidden, false, "insufficient permissions", true, false},
	CodeNotFound:            {http.StatusNotFound, false, "resource not found", true, false},
	CodeConflict:            {http.StatusConflict, false, "conflict detected", true, false},
	CodeRateLimit:           {http.StatusTooManyRequests, true, "rate limit exceeded", true, false},
	CodeInternal:            {http.StatusInternalServerError, true, "internal server error", false, false},
	CodeDependency:          {http.StatusServiceUnavailable, true, "dependency unavailable", false, true},
	CodeFetch:               {http.StatusBadGateway, true, "content fetch failed", false, true},
	CodeGeneration:          {http.StatusBadGateway, true, "structured data generation failed", false, true},
	CodeNormalization:       {http.StatusUnprocessableEntity, false, "record normalization failed", true, true},
	CodePersistenceConflict: {http.StatusConflict, false, "record already exists", true, true},
	CodeAutomation:          {http.StatusBadGateway, true, "browser automation failed", false, true},
}

// MetadataFor returns the metadata of code; unknown codes are internal.
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

// WithDetails attaches client-safe context, such as the failing field.
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

// IsCode reports whether err carries a typed error with the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Retryable reports whether err is a typed error whose code may succeed on a
// later attempt. Plain errors are not retryable.
func Retryable(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.code).Retryable
}

// As returns the outermost typed error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
