package domain

import (
	"errors"
	"fmt"
)

// Application error codes. These map onto HTTP status codes at the handler
// boundary and decide which messages are safe to show callers.
const (
	EINVALID         = "invalid"         // 400 - bad input
	EUNAUTHENTICATED = "unauthenticated" // 401 - missing or bad credentials
	EFORBIDDEN       = "forbidden"       // 403 - authenticated but not permitted
	ENOTFOUND        = "not_found"       // 404 - resource not found
	ECONFLICT        = "conflict"        // 409 - duplicate, already running, stale state
	ERATELIMIT       = "rate_limit"      // 429 - too many requests
	EUPSTREAM        = "upstream"        // 502 - gateway, rater, or SFTP failure
	EINTERNAL        = "internal"        // 500 - internal error (hide details)
)

// Error is an application error with a machine-readable code.
// It supports wrapping so call sites can annotate without losing the code.
type Error struct {
	// Code is one of the E* constants above.
	Code string

	// Message is safe to show to the caller.
	Message string

	// Op names the operation that failed, e.g. "order.refund". For logs only.
	Op string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the code from an error.
// Returns EINTERNAL for non-domain errors and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage extracts a caller-facing message from an error.
// Internal errors get a generic message so details never leak.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// Errorf creates a new domain error with a formatted message.
func Errorf(code, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Invalid creates a validation error.
func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

// Unauthenticated creates an authentication error.
func Unauthenticated(op, message string) error {
	return &Error{Code: EUNAUTHENTICATED, Op: op, Message: message}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

// NotFound creates a not-found error for a resource.
func NotFound(op, resource string) error {
	return &Error{Code: ENOTFOUND, Op: op, Message: resource + " not found"}
}

// Conflict creates a conflict error.
func Conflict(op, message string) error {
	return &Error{Code: ECONFLICT, Op: op, Message: message}
}

// Upstream wraps a collaborator failure, keeping its message inline.
func Upstream(err error, op, message string) error {
	return &Error{Code: EUPSTREAM, Op: op, Message: message, Err: err}
}

// Internal wraps an unexpected error. The message shown to callers is
// generic; the wrapped error is for logging.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}
