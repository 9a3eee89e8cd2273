package llm

import (
	"context"
	"time"
)

// RetryProvider wraps a Provider with exponential-backoff retries for
// transient failures.
type RetryProvider struct {
	provider   Provider
	maxRetries int
	baseDelay  time.Duration
}

// WithRetry wraps the given provider so transient failures (rate limit,
// connectivity) are retried up to maxRetries times with exponential
// backoff. Malformed-request errors fail immediately.
func WithRetry(provider Provider, maxRetries int) Provider {
	return &RetryProvider{
		provider:   provider,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
	}
}

func (r *RetryProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !Retryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
