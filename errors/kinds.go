package errors

// Kind is the closed set of failure classes produced by httpkit.
type Kind string

// Construction and state errors (never retryable)
const (
	// KindInvalidArgument indicates a malformed value passed to a builder or config.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	// KindIllegalState indicates an operation invalid for the current object state,
	// such as writing a single-use body twice.
	KindIllegalState Kind = "ILLEGAL_STATE"
)

// Transport errors
const (
	// KindTransport indicates a connection-level failure (refused, DNS, reset).
	KindTransport Kind = "TRANSPORT"
	// KindTimeout indicates a request or connection deadline was exceeded.
	KindTimeout Kind = "TIMEOUT"
	// KindInterrupted indicates the caller cancelled the operation.
	KindInterrupted Kind = "INTERRUPTED"
)

// Response errors
const (
	// KindUnexpectedStatus indicates a response status the handler did not accept.
	KindUnexpectedStatus Kind = "UNEXPECTED_STATUS"
	// KindDecode indicates the response body could not be decoded.
	KindDecode Kind = "DECODE"
)

var retryableKinds = map[Kind]bool{
	KindTransport: true,
	KindTimeout:   true,
}

// IsRetryableKind returns true if failures of the kind are retryable by default.
func IsRetryableKind(k Kind) bool {
	return retryableKinds[k]
}

// String returns the kind name.
func (k Kind) String() string { return string(k) }
