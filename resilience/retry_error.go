package resilience

import (
	"fmt"
	"slices"
)

// RetryError is returned by Retry when every attempt failed or a stop
// condition matched. It unwraps to the final failure.
type RetryError struct {
	// Operation is the name passed to Retry.
	Operation string
	// Attempts is the number of attempts made.
	Attempts int
	// Err is the final failure after error mapping.
	Err error
	// Suppressed holds the failures of the earlier attempts, oldest first.
	Suppressed []error
}

func newRetryError(op string, attempts int, err error, suppressed []error) *RetryError {
	return &RetryError{Operation: op, Attempts: attempts, Err: err, Suppressed: slices.Clone(suppressed)}
}

func (e *RetryError) Error() string {
	if len(e.Suppressed) == 0 {
		return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Operation, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed after %d attempt(s): %v (%d earlier failure(s) suppressed)",
		e.Operation, e.Attempts, e.Err, len(e.Suppressed))
}

// Unwrap returns the final failure.
func (e *RetryError) Unwrap() error { return e.Err }

// All returns the suppressed failures followed by the final one.
func (e *RetryError) All() []error {
	return append(slices.Clone(e.Suppressed), e.Err)
}
