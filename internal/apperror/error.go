package apperror

import (
	"net/http"

	"github.com/samber/oops"
)

// Error is an operational failure: an expected fault with a status code and a
// message that is safe to return to clients.
type Error struct {
	StatusCode int
	Message    string
	cause      error
}

// New returns an operational error. The call site's stack is captured so
// development responses can show where the error was raised.
func New(statusCode int, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    message,
		cause:      oops.Code(codeFor(statusCode)).Errorf("%s", message),
	}
}

// Wrap returns an operational error that keeps err as its cause.
func Wrap(statusCode int, message string, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    message,
		cause:      oops.Code(codeFor(statusCode)).Wrap(err),
	}
}

// Validation reports missing or malformed input.
func Validation(message string) *Error { return New(http.StatusBadRequest, message) }

// Unauthorized reports a failed credential check.
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }

// NotFound reports a missing resource.
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// Conflict reports a duplicate unique field.
func Conflict(message string) *Error { return New(http.StatusConflict, message) }

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Status returns "fail" for client faults and "error" for everything else.
func (e *Error) Status() string { return statusFamily(e.StatusCode) }

func statusFamily(code int) string {
	if code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}

func codeFor(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	}
	if statusCode >= 500 {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_ERROR"
}
