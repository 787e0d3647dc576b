// Package apperr defines the error taxonomy shared by every component and
// the HTTP status codes collaborating controllers should map them to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code is one of the fixed taxonomy members. New components must reuse an
// existing code rather than invent a new one.
type Code string

const (
	CodeConfig                Code = "CONFIG"
	CodeRPC                   Code = "RPC"
	CodeDatabase              Code = "DATABASE"
	CodeParse                 Code = "PARSE"
	CodeMathOverflow          Code = "MATH_OVERFLOW"
	CodeMathRange             Code = "MATH_RANGE"
	CodeMathLiquidity         Code = "MATH_LIQUIDITY"
	CodePriceOutOfRange       Code = "PRICE_OUT_OF_RANGE"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidRequest        Code = "INVALID_REQUEST"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeShutdown              Code = "SHUTDOWN"

	// Transaction-construction specific codes named in §7.
	CodeValidationFailed = Code("VALIDATION_FAILED")
	CodePoolNotFound     = Code("POOL_NOT_FOUND")
	CodeInternal         = Code("INTERNAL_ERROR")
)

// Error is the stable, user-visible failure shape: a code, a short human
// message, optional structured details, and a timestamp.
type Error struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Timestamp: now()}
}

// Wrap attaches a taxonomy code and message to an underlying error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Timestamp: now(), cause: cause}
}

// WithField attaches a single offending-field detail, used for 4xx
// validation responses where the caller needs to know which input failed.
func (e *Error) WithField(field string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[field] = value
	return e
}

var now = time.Now

// HTTPStatus maps a taxonomy code to the status a collaborating HTTP layer
// should return. 400 validation, 404 missing, 409 duplicate, 500 otherwise.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidRequest, CodeValidationFailed, CodeParse, CodeMathOverflow, CodeMathRange:
		return http.StatusBadRequest
	case CodeNotFound, CodePoolNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, following the wrap chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
