package llm

import (
	"context"
	"time"
)

type sessionKeyType struct{}

var sessionKey sessionKeyType

// ContextWithSession tags the context with the session the following
// LLM calls are made for, so usage middleware can attribute them.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFromContext returns the session ID the context was tagged
// with, or "".
func SessionFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey).(string); ok {
		return id
	}
	return ""
}

// UsageFunc receives the usage of one successful completion.
type UsageFunc func(ctx context.Context, model string, inputTokens, outputTokens int, duration time.Duration)

// UsageProvider reports each successful completion's token usage and
// latency to a callback. Wrap it directly around the transport provider
// so cache hits higher up are not counted twice.
type UsageProvider struct {
	provider Provider
	fn       UsageFunc
}

// WithUsage wraps the provider with usage reporting.
func WithUsage(provider Provider, fn UsageFunc) Provider {
	return &UsageProvider{provider: provider, fn: fn}
}

func (u *UsageProvider) Name() string {
	return u.provider.Name() + "+usage"
}

func (u *UsageProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	resp, err := u.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	u.fn(ctx, model, resp.InputTokens, resp.OutputTokens, time.Since(start))
	return resp, nil
}
