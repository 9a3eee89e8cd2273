package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an API failure for retry decisions.
type ErrorKind string

const (
	// KindRateLimit means the provider rejected the call for quota
	// reasons. Retryable after backoff.
	KindRateLimit ErrorKind = "rate_limit"
	// KindConnectivity covers network failures, 5xx responses and
	// timeouts. Retryable.
	KindConnectivity ErrorKind = "connectivity"
	// KindMalformed means the request itself was rejected (bad model,
	// bad parameters, auth). Not retryable.
	KindMalformed ErrorKind = "malformed"
)

// APIError wraps a provider failure with its retry classification.
type APIError struct {
	Kind ErrorKind
	Err  error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error is worth retrying: rate-limit and
// connectivity failures are, malformed requests are not. Context
// cancellation is never retryable.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindRateLimit || apiErr.Kind == KindConnectivity
	}
	// Unclassified errors are treated as transient.
	return true
}
