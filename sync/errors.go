package sync

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// maxLoggedPayload caps how much of an outbound payload is rendered in error strings.
// The full payload is always kept on the error value itself.
const maxLoggedPayload = 2048

var (
	// ErrMissingRecordID indicates a record without the HubSpot object id it targets.
	ErrMissingRecordID = errors.New("record is missing id")

	// ErrUnsupportedObjectType indicates an object type outside the supported set.
	ErrUnsupportedObjectType = errors.New("unsupported object type")
)

// ConfigurationError is raised before any network call when the sync cannot run as configured.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid configuration %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// APIError is a non-retryable HTTP failure returned by HubSpot.
// Payload holds the exact request body that was sent, when there was one worth keeping.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
	Payload    []byte
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed (status %d): %s", e.Operation, e.StatusCode, e.Body)
	if len(e.Payload) > 0 {
		fmt.Fprintf(&b, " payload: %s", truncate(string(e.Payload), maxLoggedPayload))
	}
	return b.String()
}

// TransportError wraps a connectivity failure. It is always retried.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a retryable HTTP status (5xx or 429).
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned retryable status %d: %s", e.Operation, e.StatusCode, truncate(e.Body, maxLoggedPayload))
}

// RetryExhaustedError is returned once a retryable failure outlives the retry budget.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Elapsed   time.Duration
	Last      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s gave up after %d attempts in %s: %v", e.Operation, e.Attempts, e.Elapsed, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// IsFatal reports whether err ends the current batch. Every error that reaches
// a caller of this package is fatal; retryable failures never escape the dispatcher.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		return true
	}
	var transport *TransportError
	var status *StatusError
	return !errors.As(err, &transport) && !errors.As(err, &status)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + fmt.Sprintf("...(%d bytes truncated)", len(s)-n)
}
