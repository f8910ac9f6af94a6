package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error is the unified httpkit error type.
type Error struct {
	// Kind classifies the failure.
	Kind Kind `json:"kind"`
	// Op names the operation that failed (e.g. "uri.build", "retry").
	Op string `json:"op,omitempty"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// StatusCode is the HTTP status for response errors (0 otherwise).
	StatusCode int `json:"status_code,omitempty"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Body is the response body for response errors (may be nil).
	Body []byte `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports kind equality so that errors.Is(err, &Error{Kind: k}) matches any error of kind k.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Op == "" && t.Kind == e.Kind
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithOp sets the failing operation and returns the receiver.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with retryable detection from the kind.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: IsRetryableKind(kind),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// --- Common Error Constructors ---

// InvalidArgument creates an error for a malformed argument.
func InvalidArgument(format string, args ...any) *Error {
	return Newf(KindInvalidArgument, format, args...)
}

// IllegalState creates an error for an operation that is invalid in the current state.
func IllegalState(format string, args ...any) *Error {
	return Newf(KindIllegalState, format, args...)
}

// Transport creates a retryable connection-level error.
func Transport(cause error) *Error {
	return New(KindTransport, "transport failure").WithCause(cause)
}

// Timeout creates a retryable deadline error.
func Timeout(operation string, cause error) *Error {
	return New(KindTimeout, "deadline exceeded").WithOp(operation).WithCause(cause)
}

// Interrupted wraps a context cancellation cause.
func Interrupted(operation string, cause error) *Error {
	return New(KindInterrupted, "interrupted").WithOp(operation).WithCause(cause)
}

// Decode creates an error for a response body that could not be decoded.
func Decode(cause error) *Error {
	return New(KindDecode, "unable to decode response body").WithCause(cause)
}

// UnexpectedStatus creates an error for a response status the caller did not expect.
// 429 and 5xx are marked retryable.
func UnexpectedStatus(statusCode int, body []byte) *Error {
	return &Error{
		Kind:       KindUnexpectedStatus,
		Message:    "unexpected response status " + http.StatusText(statusCode),
		StatusCode: statusCode,
		Retryable:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
		Body:       body,
	}
}

// ClassifyStatus converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatus(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return UnexpectedStatus(statusCode, body)
}

// FromContext maps a context error to KindTimeout or KindInterrupted.
// Returns nil if err is not a context error.
func FromContext(operation string, err error) *Error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout(operation, err)
	case stderrors.Is(err, context.Canceled):
		return Interrupted(operation, err)
	default:
		return nil
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Retryable
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As is errors.As from the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join is errors.Join from the standard library.
func Join(errs ...error) error { return stderrors.Join(errs...) }
